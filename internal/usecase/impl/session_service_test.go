package impl

import (
	"context"
	"testing"

	"aspen/internal/domain/entity"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fastlaneTranscript = `---
- !ruby/object:HTTP::Cookie
  name:  myacinfo
  value: DAWTKN123
- !ruby/object:HTTP::Cookie
  name:  dqsid
  value: abc`

func TestSessionService_LoginByFastlane(t *testing.T) {
	accountRepo := newFakeAccountRepo()
	gateway := &stubPortal{
		GetUserProfileFn: func(_ context.Context, cookie string) (string, error) {
			assert.Contains(t, cookie, "myacinfo=DAWTKN123")

			return "dev@example.com", nil
		},
	}
	service := NewSessionService(gateway, accountRepo, testLogger())

	result, err := service.LoginByFastlane(context.Background(), fastlaneTranscript)
	require.NoError(t, err)
	assert.True(t, result.Succ)
	assert.Equal(t, "dev@example.com", result.Account)

	saved, err := accountRepo.FindByAccount(context.Background(), "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, "DAWTKN123", saved.CookieMap()["myacinfo"])
}

func TestSessionService_LoginByCurlKeepsExistingFields(t *testing.T) {
	existing := &entity.Account{Account: "dev@example.com", TeamID: "TEAM1", Phone: "+15551234567"}
	accountRepo := newFakeAccountRepo(existing)
	gateway := &stubPortal{
		GetUserProfileFn: func(context.Context, string) (string, error) {
			return "dev@example.com", nil
		},
	}
	service := NewSessionService(gateway, accountRepo, testLogger())

	transcript := `curl 'https://developer.example.com/account' -H 'user-agent: Mozilla/5.0' -b 'myacinfo=FRESH'`
	result, err := service.LoginByCurl(context.Background(), transcript)
	require.NoError(t, err)
	assert.True(t, result.Succ)

	saved, err := accountRepo.FindByAccount(context.Background(), "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, "FRESH", saved.CookieMap()["myacinfo"])
	assert.Equal(t, "Mozilla/5.0", saved.HeaderMap()["user-agent"])
	assert.Equal(t, "TEAM1", saved.TeamID)
	assert.Equal(t, "+15551234567", saved.Phone)
}

func TestSessionService_ParseFailureIsStructured(t *testing.T) {
	service := NewSessionService(&stubPortal{}, newFakeAccountRepo(), testLogger())

	result, err := service.LoginByCurl(context.Background(), "curl 'https://example.com'")
	require.NoError(t, err)
	assert.False(t, result.Succ)
	assert.NotEmpty(t, result.Reason)
}

func TestSessionService_RejectedProbeIsStructured(t *testing.T) {
	accountRepo := newFakeAccountRepo()
	gateway := &stubPortal{
		GetUserProfileFn: func(context.Context, string) (string, error) {
			return "", errors.New("401 from portal")
		},
	}
	service := NewSessionService(gateway, accountRepo, testLogger())

	result, err := service.LoginByFastlane(context.Background(), fastlaneTranscript)
	require.NoError(t, err)
	assert.False(t, result.Succ)
	assert.Equal(t, 0, accountRepo.saves)
}
