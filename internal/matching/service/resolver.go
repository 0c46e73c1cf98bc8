package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"jury_portal_backend/internal/directory"
	invdomain "jury_portal_backend/internal/invitations/domain"
	"jury_portal_backend/internal/matching/domain"
	"jury_portal_backend/platform/ai/moonshot"
	"jury_portal_backend/platform/apperr"
	"jury_portal_backend/platform/logger"
	"jury_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	domainBaseConfidence = 75
	startupNameBonus     = 5
	jurorNameBonus       = 4
)

var freeMailDomains = map[string]struct{}{
	"gmail.com": {}, "googlemail.com": {}, "outlook.com": {}, "hotmail.com": {}, "live.com": {},
	"yahoo.com": {}, "icloud.com": {}, "me.com": {}, "aol.com": {}, "proton.me": {},
	"protonmail.com": {}, "gmx.de": {}, "gmx.net": {}, "web.de": {}, "hey.com": {},
}

// SuggestRequest is what the AI stage sees: the invitation text plus bounded
// candidate lists.
type SuggestRequest struct {
	Summary     string
	Description string
	Location    string
	Attendees   []string
	StartTime   *time.Time
	Startups    []directory.Startup
	Jurors      []directory.Juror
	Max         int
}

// Suggester is the AI matching capability.
type Suggester interface {
	Suggest(ctx context.Context, req SuggestRequest) ([]domain.MatchSuggestion, error)
}

// Result is the outcome of Resolve. Err is set when a stage failed; the
// suggestions of earlier stages are still returned.
type Result struct {
	Suggestions []domain.MatchSuggestion
	AIInvoked   bool
	Err         *apperr.Error
}

// Resolver runs the exact, domain and AI stages.
type Resolver struct {
	suggester      Suggester
	candidateLimit int
	aiTimeout      time.Duration
	log            *logger.Logger
}

// NewResolver creates a resolver. suggester may be nil to disable the AI stage.
func NewResolver(suggester Suggester, candidateLimit int, aiTimeout time.Duration, log *logger.Logger) *Resolver {
	if candidateLimit <= 0 {
		candidateLimit = 50
	}
	return &Resolver{suggester: suggester, candidateLimit: candidateLimit, aiTimeout: aiTimeout, log: log}
}

// Resolve proposes up to three (startup, juror) pairs for inv. It never
// applies a suggestion and never returns a Go error.
func (r *Resolver) Resolve(ctx context.Context, inv invdomain.CalendarInvitation, startups []directory.Startup, jurors []directory.Juror) Result {
	attendees := normalizedAttendees(inv.AttendeeEmails)

	if exact, ok := exactStage(attendees, startups, jurors); ok {
		return Result{Suggestions: domain.Merge([]domain.MatchSuggestion{exact})}
	}

	text := strings.ToLower(inv.Summary + "\n" + inv.Description)
	prior := domain.Merge(domainStage(attendees, text, startups, jurors))
	if domain.Best(prior) >= domain.AIThreshold || r.suggester == nil {
		return Result{Suggestions: prior}
	}

	req := SuggestRequest{
		Summary:     inv.Summary,
		Description: inv.Description,
		Location:    inv.Location,
		Attendees:   attendees,
		StartTime:   inv.StartTime,
		Startups:    rankStartups(startups, attendees, text, r.candidateLimit),
		Jurors:      rankJurors(jurors, attendees, text, r.candidateLimit),
		Max:         domain.MaxSuggestions,
	}

	aiCtx := ctx
	if r.aiTimeout > 0 {
		var cancel context.CancelFunc
		aiCtx, cancel = context.WithTimeout(ctx, r.aiTimeout)
		defer cancel()
	}

	aiSuggestions, err := r.suggester.Suggest(aiCtx, req)
	if err != nil {
		r.log.UpstreamFailure("match_suggester", "resolve", err)
		return Result{Suggestions: prior, AIInvoked: true, Err: aiError(err)}
	}

	valid := filterAISuggestions(aiSuggestions, req.Startups, req.Jurors)
	r.log.Debug("ai match suggestions", slog.Int("returned", len(aiSuggestions)), slog.Int("valid", len(valid)))
	return Result{Suggestions: domain.Merge(prior, valid), AIInvoked: true}
}

func aiError(err error) *apperr.Error {
	switch {
	case errors.Is(err, moonshot.ErrRateLimited):
		return apperr.Upstream("AI matching is rate limited; try again in a minute", err)
	case errors.Is(err, moonshot.ErrTooLong):
		return apperr.Upstream("the invitation is too long for AI matching; match it manually", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Upstream("AI matching timed out; showing rule-based suggestions only", err)
	default:
		return apperr.Upstream("AI matching failed; showing rule-based suggestions only", err)
	}
}

// exactStage succeeds only when exactly one startup and exactly one juror
// match an attendee address.
func exactStage(attendees []string, startups []directory.Startup, jurors []directory.Juror) (domain.MatchSuggestion, bool) {
	set := make(map[string]struct{}, len(attendees))
	for _, a := range attendees {
		set[a] = struct{}{}
	}

	startup, ok := uniqueStartup(startups, func(s directory.Startup) bool {
		_, hit := set[sanitize.Email(s.ContactEmail)]
		return hit
	})
	if !ok {
		return domain.MatchSuggestion{}, false
	}
	juror, ok := uniqueJuror(jurors, func(j directory.Juror) bool {
		_, hit := set[sanitize.Email(j.Email)]
		return hit
	})
	if !ok {
		return domain.MatchSuggestion{}, false
	}

	return domain.MatchSuggestion{
		StartupID:          startup.ID,
		JurorID:            juror.ID,
		StartupConfidence:  100,
		JurorConfidence:    100,
		CombinedConfidence: 100,
		Reasoning:          fmt.Sprintf("%s and %s are both invited", startup.ContactEmail, juror.Email),
		Method:             domain.MethodExactEmail,
	}, true
}

func domainStage(attendees []string, text string, startups []directory.Startup, jurors []directory.Juror) []domain.MatchSuggestion {
	domains := make(map[string]struct{})
	for _, a := range attendees {
		d := sanitize.EmailDomain(a)
		if d == "" || isFreeMail(d) {
			continue
		}
		domains[d] = struct{}{}
	}
	if len(domains) == 0 {
		return nil
	}

	startup, ok := uniqueStartup(startups, func(s directory.Startup) bool {
		for _, d := range startupDomains(s) {
			if _, hit := domains[d]; hit {
				return true
			}
		}
		return false
	})
	if !ok {
		return nil
	}
	juror, ok := uniqueJuror(jurors, func(j directory.Juror) bool {
		_, hit := domains[sanitize.EmailDomain(j.Email)]
		return hit
	})
	if !ok {
		return nil
	}

	startupConf, jurorConf := domainBaseConfidence, domainBaseConfidence
	reasons := []string{"attendee domains match the startup and the juror"}
	if mentions(text, startup.Name) {
		startupConf += startupNameBonus
		reasons = append(reasons, "startup name appears in the invitation")
	}
	if mentions(text, juror.Name) || mentions(text, juror.Company) {
		jurorConf += jurorNameBonus
		reasons = append(reasons, "juror name or company appears in the invitation")
	}

	return []domain.MatchSuggestion{{
		StartupID:          startup.ID,
		JurorID:            juror.ID,
		StartupConfidence:  startupConf,
		JurorConfidence:    jurorConf,
		CombinedConfidence: startupConf + jurorConf - domainBaseConfidence,
		Reasoning:          strings.Join(reasons, "; "),
		Method:             domain.MethodDomain,
	}}
}

// filterAISuggestions keeps complete pairs that reference offered candidates
// and recomputes the combined confidence from both sides.
func filterAISuggestions(in []domain.MatchSuggestion, startups []directory.Startup, jurors []directory.Juror) []domain.MatchSuggestion {
	startupIDs := make(map[uuid.UUID]struct{}, len(startups))
	for _, s := range startups {
		startupIDs[s.ID] = struct{}{}
	}
	jurorIDs := make(map[uuid.UUID]struct{}, len(jurors))
	for _, j := range jurors {
		jurorIDs[j.ID] = struct{}{}
	}

	out := make([]domain.MatchSuggestion, 0, len(in))
	for _, s := range in {
		if _, ok := startupIDs[s.StartupID]; !ok {
			continue
		}
		if _, ok := jurorIDs[s.JurorID]; !ok {
			continue
		}
		s.Method = domain.MethodAI
		s.CombinedConfidence = (s.StartupConfidence + s.JurorConfidence) / 2
		s.Reasoning = sanitize.Text(s.Reasoning)
		if s.CombinedConfidence < domain.MinConfidence {
			continue
		}
		out = append(out, s)
	}
	return out
}

// rankStartups orders candidates by how strongly the invitation points at
// them and keeps the first limit.
func rankStartups(startups []directory.Startup, attendees []string, text string, limit int) []directory.Startup {
	domains := attendeeDomains(attendees)
	scored := make([]scoredCandidate[directory.Startup], 0, len(startups))
	for _, s := range startups {
		score := 0
		if mentions(text, s.Name) {
			score += 2
		}
		for _, d := range startupDomains(s) {
			if _, ok := domains[d]; ok {
				score++
				break
			}
		}
		scored = append(scored, scoredCandidate[directory.Startup]{item: s, score: score, name: s.Name, id: s.ID})
	}
	return topCandidates(scored, limit)
}

func rankJurors(jurors []directory.Juror, attendees []string, text string, limit int) []directory.Juror {
	domains := attendeeDomains(attendees)
	scored := make([]scoredCandidate[directory.Juror], 0, len(jurors))
	for _, j := range jurors {
		score := 0
		if mentions(text, j.Name) {
			score += 2
		}
		if mentions(text, j.Company) {
			score++
		}
		if _, ok := domains[sanitize.EmailDomain(j.Email)]; ok {
			score++
		}
		scored = append(scored, scoredCandidate[directory.Juror]{item: j, score: score, name: j.Name, id: j.ID})
	}
	return topCandidates(scored, limit)
}

type scoredCandidate[T any] struct {
	item  T
	score int
	name  string
	id    uuid.UUID
}

func topCandidates[T any](scored []scoredCandidate[T], limit int) []T {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].name != scored[j].name {
			return scored[i].name < scored[j].name
		}
		return scored[i].id.String() < scored[j].id.String()
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]T, 0, len(scored))
	for _, c := range scored {
		out = append(out, c.item)
	}
	return out
}

func uniqueStartup(startups []directory.Startup, match func(directory.Startup) bool) (directory.Startup, bool) {
	var found []directory.Startup
	for _, s := range startups {
		if match(s) {
			found = append(found, s)
		}
	}
	if len(found) != 1 {
		return directory.Startup{}, false
	}
	return found[0], true
}

func uniqueJuror(jurors []directory.Juror, match func(directory.Juror) bool) (directory.Juror, bool) {
	var found []directory.Juror
	for _, j := range jurors {
		if match(j) {
			found = append(found, j)
		}
	}
	if len(found) != 1 {
		return directory.Juror{}, false
	}
	return found[0], true
}

func normalizedAttendees(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, a := range in {
		a = sanitize.Email(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func attendeeDomains(attendees []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, a := range attendees {
		if d := sanitize.EmailDomain(a); d != "" && !isFreeMail(d) {
			out[d] = struct{}{}
		}
	}
	return out
}

func startupDomains(s directory.Startup) []string {
	var out []string
	if d := sanitize.EmailDomain(s.ContactEmail); d != "" && !isFreeMail(d) {
		out = append(out, d)
	}
	if host := websiteHost(s.Website); host != "" && (len(out) == 0 || out[0] != host) {
		out = append(out, host)
	}
	return out
}

func websiteHost(website string) string {
	website = strings.TrimSpace(strings.ToLower(website))
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func isFreeMail(d string) bool {
	_, ok := freeMailDomains[d]
	return ok
}

// mentions reports whether name (at least three characters) occurs in text.
func mentions(text, name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < 3 {
		return false
	}
	return strings.Contains(text, name)
}
