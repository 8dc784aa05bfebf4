package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/reqtoken/pkg/cryptox"
	"github.com/aussiebroadwan/reqtoken/pkg/jwtx"
)

// InitKeys builds the signing key set. The current secret signs, previous
// secrets only verify so links sent before a rotation keep working.
//
// Key ids are derived from the secrets, every instance sharing a secret
// agrees on them without coordination.
func InitKeys(cfg Config, logger *slog.Logger) (*jwtx.KeySet, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		generated, err := cryptox.GenerateSecret(cryptox.SecretSize256)
		if err != nil {
			return nil, fmt.Errorf("failed to generate dev secret: %w", err)
		}
		secret = generated
		logger.Warn("REQUEST_TOKEN_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	keys := jwtx.NewKeySet()
	kid := keyID(secret)
	if err := keys.Add(kid, secret); err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TOKEN_SECRET: %w", err)
	}

	for i, prev := range cfg.PreviousSecrets {
		if err := keys.Add(keyID([]byte(prev)), []byte(prev)); err != nil {
			return nil, fmt.Errorf("invalid REQUEST_TOKEN_PREVIOUS_SECRETS entry %d: %w", i, err)
		}
	}

	logger.Info("request token keys loaded",
		"kid", kid,
		"previous_keys", len(cfg.PreviousSecrets),
	)
	return keys, nil
}

func keyID(secret []byte) string {
	return cryptox.Fingerprint("reqtoken/kid", secret)
}
