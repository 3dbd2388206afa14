package derivation

import (
	"strconv"
	"strings"

	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/keyspace"
)

// BIP44LikePath is the legacy depth-5 "Olympia" account path:
// m/44'/1022'/0'/0/INDEX'. It exists only to let the core recognize
// accounts created by the ledger's predecessor wallet; no new
// BIP44LikePath should ever be minted by this core.
type BIP44LikePath struct {
	Index keyspace.HDPathComponent
}

// Depth is always 5 for a BIP44LikePath.
func (p BIP44LikePath) Depth() int { return 5 }

// GlobalComponents returns the path's five BIP32 components in global
// key-space form, suitable for HMAC-SHA512 child-key derivation.
func (p BIP44LikePath) GlobalComponents() []uint32 {
	return []uint32{
		keyspace.GlobalOffsetHardened + Purpose,
		keyspace.GlobalOffsetHardened + CoinType,
		keyspace.GlobalOffsetHardened, // account' = 0H
		0,                              // change = 0, unhardened
		p.Index.ToGlobal(),
	}
}

// String renders the path in its canonical form.
func (p BIP44LikePath) String() string {
	parts := []string{
		"m",
		strconv.FormatUint(uint64(Purpose), 10) + "H",
		strconv.FormatUint(uint64(CoinType), 10) + "H",
		"0H",
		"0",
		keyspace.String(p.Index),
	}
	return strings.Join(parts, "/")
}

// ParseBIP44LikePath parses a depth-5 legacy Olympia path string.
func ParseBIP44LikePath(raw string) (BIP44LikePath, error) {
	components, err := keyspace.ParsePath(raw)
	if err != nil {
		return BIP44LikePath{}, err
	}
	if len(components) != 5 {
		return BIP44LikePath{}, cerrors.Withf(cerrors.KindInvalidDepthOfCAP26Path, "depth %d", len(components))
	}

	if components[0].IndexInLocalKeySpace() != Purpose || !keyspace.IsHardened(components[0]) {
		return BIP44LikePath{}, cerrors.New(cerrors.KindBIP44PurposeNotFound)
	}
	if components[1].IndexInLocalKeySpace() != CoinType || !keyspace.IsHardened(components[1]) {
		return BIP44LikePath{}, cerrors.New(cerrors.KindCoinTypeNotFound)
	}
	if components[2].IndexInLocalKeySpace() != 0 || !keyspace.IsHardened(components[2]) {
		return BIP44LikePath{}, cerrors.Withf(cerrors.KindInvalidBIP32Path, "account' must be 0H")
	}
	if components[3].IndexInLocalKeySpace() != 0 || keyspace.IsHardened(components[3]) {
		return BIP44LikePath{}, cerrors.Withf(cerrors.KindInvalidBIP32Path, "change must be unhardened 0")
	}
	if !keyspace.IsHardened(components[4]) {
		return BIP44LikePath{}, cerrors.New(cerrors.KindNotAllComponentsAreHardened)
	}

	return BIP44LikePath{Index: components[4]}, nil
}
