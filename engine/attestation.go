package engine

import (
	logger "github.com/sirupsen/logrus"

	"github.com/settlenet-io/settle-go/agreement"
	"github.com/settlenet-io/settle-go/registry"
)

// RelayerAttestor accepts an attestation iff its attestor is the
// registry's current relayer identity. It stands in for a real
// cryptographic verifier (light client, threshold signature) and must be
// swapped out before any production deployment; the ledger logic does not
// change when it is.
type RelayerAttestor struct {
	registry *registry.Registry
}

func NewRelayerAttestor(reg *registry.Registry) *RelayerAttestor {
	return &RelayerAttestor{registry: reg}
}

func (ra *RelayerAttestor) Verify(att *agreement.TransferAttestation) error {
	if att.Attestor != ra.registry.Relayer() {
		logger.WithField("attestor", att.Attestor.Hex()).Warn("attestation from unknown relayer rejected")
		return agreement.ErrUnauthorized
	}
	return nil
}
