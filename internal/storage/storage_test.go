package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestFeedbackEmailKey(t *testing.T) {
	id := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	sentAt := time.Date(2026, 10, 18, 13, 4, 5, 0, time.FixedZone("CEST", 2*60*60))

	got := FeedbackEmailKey(" Screening ", id, sentAt)
	want := "feedback/screening/7c9e6679-7425-40de-944b-e07fc1f90ae7/20261018T110405Z.html"
	if got != want {
		t.Fatalf("FeedbackEmailKey() = %q, want %q", got, want)
	}

	if got := FeedbackEmailKey("", id, sentAt); got[:17] != "feedback/unknown/" {
		t.Fatalf("expected unknown round prefix, got %q", got)
	}
}
