// Package signer signs mobileconfig payloads with the external openssl
// binary so installing devices show a trusted profile prompt.
package signer

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"

	"aspen/config"
	"aspen/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Params holds dependencies for the signer, injected by Fx.
type Params struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// New selects the openssl signer when key material is configured and falls
// back to pass-through otherwise. Unsigned profiles still install, the
// device just flags them unverified.
func New(params Params) service.ProfileSigner {
	if params.Config.Signer == nil || params.Config.Signer.SignerCert == "" {
		params.Logger.Warn("No signing material configured, mobileconfig payloads go out unsigned")

		return &PassthroughSigner{}
	}

	return &OpenSSLSigner{cfg: params.Config.Signer, logger: params.Logger}
}

// OpenSSLSigner shells out to openssl smime for SMIME DER signing.
type OpenSSLSigner struct {
	cfg    *config.SignerConfig
	logger *slog.Logger
}

// Sign wraps the payload in a DER SMIME envelope.
func (s *OpenSSLSigner) Sign(ctx context.Context, mobileconfig []byte) ([]byte, error) {
	args := []string{
		"smime", "-sign", "-nodetach",
		"-outform", "der",
		"-signer", s.cfg.SignerCert,
		"-inkey", s.cfg.SignerKey,
	}
	if s.cfg.CAChain != "" {
		args = append(args, "-certfile", s.cfg.CAChain)
	}
	if s.cfg.KeyPassword != "" {
		args = append(args, "-passin", "pass:"+s.cfg.KeyPassword)
	}

	cmd := exec.CommandContext(ctx, "openssl", args...)
	cmd.Stdin = bytes.NewReader(mobileconfig)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		s.logger.Error("Signing failed",
			slog.String("stderr", stderr.String()),
			slog.Any("error", err),
		)

		return nil, errors.Wrap(err, "openssl smime")
	}

	return stdout.Bytes(), nil
}

// PassthroughSigner returns payloads unchanged.
type PassthroughSigner struct{}

func (s *PassthroughSigner) Sign(_ context.Context, mobileconfig []byte) ([]byte, error) {
	return mobileconfig, nil
}

var (
	_ service.ProfileSigner = (*OpenSSLSigner)(nil)
	_ service.ProfileSigner = (*PassthroughSigner)(nil)
)
