package usecase

import "context"

// SessionResult is the structured outcome of a session capture. Parse and
// probe failures land here instead of in an error; operators paste
// transcripts by hand and get told what went wrong.
type SessionResult struct {
	Succ    bool   `json:"succ"`
	Reason  string `json:"reason,omitempty"`
	Account string `json:"account,omitempty"`
}

// SessionUsecase bootstraps account sessions from captured logins.
type SessionUsecase interface {
	// LoginByFastlane installs a session from a fastlane session export.
	LoginByFastlane(ctx context.Context, transcript string) (*SessionResult, error)

	// LoginByCurl installs a session from a browser-exported curl command.
	LoginByCurl(ctx context.Context, transcript string) (*SessionResult, error)
}
