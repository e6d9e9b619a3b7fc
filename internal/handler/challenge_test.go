package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/skilltree/internal/model"
)

func TestChallenges(t *testing.T) {
	app := newTestApp(t, nil)
	token := app.register(t, "ada")

	rec := app.do(t, http.MethodGet, "/api/challenges", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.DailyChallenge](t, rec)
	require.Len(t, list, 4)
	assert.Equal(t, "Gym", list[0].Name)
	for _, c := range list {
		assert.False(t, c.Completed, c.Name)
	}

	rec = app.do(t, http.MethodPost, "/api/challenges/reading/complete", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range decode[[]model.DailyChallenge](t, rec) {
		assert.Equal(t, c.Name == "Reading", c.Completed, c.Name)
	}

	// Completing twice is fine.
	rec = app.do(t, http.MethodPost, "/api/challenges/Reading/complete", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompleteChallenge_Unknown(t *testing.T) {
	app := newTestApp(t, nil)
	token := app.register(t, "ada")

	rec := app.do(t, http.MethodPost, "/api/challenges/Knitting/complete", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
