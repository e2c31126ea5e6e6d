package usecase

import "context"

// RedeemResult is the outcome of an enrollment redemption. Extraction
// failures surface here with Succ false; precondition failures (bad token,
// exhausted capacity) surface as errors instead.
type RedeemResult struct {
	Succ        bool   `json:"succ"`
	Reason      string `json:"reason,omitempty"`
	UDID        string `json:"udid,omitempty"`
	Account     string `json:"account,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// ProjectInfo is what the landing page needs to start an enrollment.
type ProjectInfo struct {
	Project  string         `json:"project"`
	Comments map[string]any `json:"comments"`
	Token    string         `json:"token"`
}

// EnrollmentUsecase issues enrollment tokens and redeems them into served
// devices.
type EnrollmentUsecase interface {
	// NewToken mints a one-time enrollment token for a provisioned project.
	NewToken(ctx context.Context, project string) (string, error)

	// Redeem turns a token into an enrollment. When udid is empty the
	// device's plist callback payload is parsed for one. A device already
	// enrolled for the project reuses its previous enrollment.
	Redeem(ctx context.Context, token, udid string, payload []byte) (*RedeemResult, error)

	// Info returns the project's landing metadata plus a fresh token.
	Info(ctx context.Context, project string) (*ProjectInfo, error)
}
