package interactors

import (
	"context"
	"crypto/sha256"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/factor"
)

// DeviceInteractor is the reference, seed-backed implementation of
// both KeyDerivationInteractor and SignInteractor used by tests and
// by cmd/hdcore's demo. A production device factor source would keep
// its seed behind a SecureStorageDriver and never let it cross a
// process boundary; this reference holds the seed in memory as the
// simplest faithful stand-in.
type DeviceInteractor struct {
	factorSourceID factor.IDFromHash
	seed           []byte
}

// NewDeviceInteractor constructs a reference interactor for a single
// Device factor source, deriving from seed.
func NewDeviceInteractor(factorSourceID factor.IDFromHash, seed []byte) *DeviceInteractor {
	return &DeviceInteractor{factorSourceID: factorSourceID, seed: seed}
}

// Derive implements KeyDerivationInteractor by walking every
// requested path's curve-appropriate SLIP-0010/BIP32 derivation
// against this device's seed.
func (d *DeviceInteractor) Derive(ctx context.Context, requests []PerFactorSourceDerivationRequest, purpose DerivationPurpose) (PerFactorDerivedKeys, error) {
	out := make(PerFactorDerivedKeys, len(requests))
	for _, req := range requests {
		if req.FactorSourceID != d.factorSourceID {
			continue
		}
		instances := make([]factor.Instance, 0, len(req.Paths))
		for _, path := range req.Paths {
			pubKey, err := d.derivePublicKey(path)
			if err != nil {
				return nil, cerrors.Wrap(cerrors.KindDerivationFailed, err)
			}
			instances = append(instances, factor.NewInstance(d.factorSourceID, pubKey, path))
		}
		log.Debug().Str("factorSourceID", d.factorSourceID.String()).Int("count", len(instances)).Str("purpose", purpose.String()).Msg("device interactor: derived batch")
		out[d.factorSourceID] = instances
	}
	return out, nil
}

func (d *DeviceInteractor) derivePublicKey(path interface {
	GlobalComponents() []uint32
	IsLegacyOlympia() bool
}) ([]byte, error) {
	components := path.GlobalComponents()
	if path.IsLegacyOlympia() {
		key, err := deriveSecp256k1(d.seed, components)
		if err != nil {
			return nil, err
		}
		return key.publicKeyBytes(), nil
	}
	key, err := deriveEd25519(d.seed, components)
	if err != nil {
		return nil, err
	}
	return key.publicKeyBytes(), nil
}

// Sign implements SignInteractor by deriving each owned instance's
// private key on demand (never persisted) and signing the payload's
// SHA-256 digest.
func (d *DeviceInteractor) Sign(ctx context.Context, requests []TransactionSignRequest, purpose SigningPurpose) (PerFactorOutcome, error) {
	out := make(PerFactorOutcome, len(requests))
	for _, req := range requests {
		if req.FactorSourceID != d.factorSourceID {
			continue
		}
		digest := sha256.Sum256(req.Payload)

		signatures := make([]Signature, 0, len(req.OwnedFactorInstances))
		for _, owned := range req.OwnedFactorInstances {
			sig, err := d.signWith(owned.Instance.PublicKey.DerivationPath, digest[:])
			if err != nil {
				out[req.FactorSourceID] = SignOutcome{Neglected: NeglectReasonFailure}
				return out, errors.Wrapf(err, "sign with factor %s", req.FactorSourceID)
			}
			signatures = append(signatures, Signature{Instance: owned, PayloadID: req.PayloadID, Bytes: sig})
		}
		out[req.FactorSourceID] = SignOutcome{Signed: true, Signatures: signatures}
	}
	return out, nil
}

func (d *DeviceInteractor) signWith(path interface {
	GlobalComponents() []uint32
	IsLegacyOlympia() bool
}, digest []byte) ([]byte, error) {
	components := path.GlobalComponents()
	if path.IsLegacyOlympia() {
		key, err := deriveSecp256k1(d.seed, components)
		if err != nil {
			return nil, err
		}
		sig, err := ethcrypto.Sign(digest, key.privateKey.ToECDSA())
		if err != nil {
			return nil, errors.Wrap(err, "secp256k1 sign")
		}
		return sig, nil
	}
	key, err := deriveEd25519(d.seed, components)
	if err != nil {
		return nil, err
	}
	priv := key.privateKey()
	sig, err := priv.Sign(digest)
	if err != nil {
		return nil, errors.Wrap(err, "ed25519 sign")
	}
	return sig.Serialize(), nil
}
