package service

import "context"

// ProfileSigner signs a mobileconfig payload so devices accept it during
// enrollment. The production implementation shells out to an OS signing
// utility; the boundary lives here so the rest of the core never touches
// key material.
type ProfileSigner interface {
	// Sign returns the DER-encoded signed payload.
	Sign(ctx context.Context, mobileconfig []byte) ([]byte, error)
}
