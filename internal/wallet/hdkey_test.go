package wallet

import (
	"bytes"
	"testing"

	"github.com/Klingon-tech/starnotary/pkg/crypto"
	"github.com/tyler-smith/go-bip32"
)

// testMaster returns the master key of the BIP-39 test vector.
func testMaster(t *testing.T) *HDKey {
	t.Helper()
	seed, err := SeedFromMnemonic(testMnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		t.Fatalf("NewMasterKey() error: %v", err)
	}
	return master
}

func TestNewMasterKey_InvalidSeedLength(t *testing.T) {
	for _, n := range []int{0, 32, 128} {
		if _, err := NewMasterKey(make([]byte, n)); err == nil {
			t.Errorf("expected error for %d-byte seed", n)
		}
	}
}

func TestDeriveOwner_Deterministic(t *testing.T) {
	a, err := testMaster(t).DeriveOwner(0, 0)
	if err != nil {
		t.Fatalf("DeriveOwner() error: %v", err)
	}
	b, _ := testMaster(t).DeriveOwner(0, 0)
	if a.Address() != b.Address() {
		t.Error("same path should derive the same address")
	}

	c, _ := testMaster(t).DeriveOwner(0, 1)
	d, _ := testMaster(t).DeriveOwner(1, 0)
	if a.Address() == c.Address() || a.Address() == d.Address() || c.Address() == d.Address() {
		t.Error("different paths should derive different addresses")
	}
}

func TestDeriveOwner_MatchesExplicitPath(t *testing.T) {
	master := testMaster(t)
	owner, _ := master.DeriveOwner(2, 5)
	explicit, err := master.DerivePath(
		bip32.FirstHardenedChild+44,
		CoinTypeStar,
		bip32.FirstHardenedChild+2,
		0,
		5,
	)
	if err != nil {
		t.Fatalf("DerivePath() error: %v", err)
	}
	if !bytes.Equal(owner.PublicKeyBytes(), explicit.PublicKeyBytes()) {
		t.Error("DeriveOwner should follow m/44'/coin'/account'/0/index")
	}
}

func TestHDKey_SignerSignsForAddress(t *testing.T) {
	key, _ := testMaster(t).DeriveOwner(0, 0)
	signer, err := key.Signer()
	if err != nil {
		t.Fatalf("Signer() error: %v", err)
	}
	if signer.Address() != key.Address() {
		t.Fatalf("signer address %s != key address %s", signer.Address(), key.Address())
	}

	msg := key.Address().String() + ":1700000000:starRegistry"
	if !crypto.VerifyMessage(key.Address(), msg, signer.SignMessage(msg)) {
		t.Error("signature from derived key should verify against its address")
	}
}

func TestHDKey_Neuter(t *testing.T) {
	key, _ := testMaster(t).DeriveOwner(0, 0)
	pub := key.Neuter()

	if pub.IsPrivate() {
		t.Error("neutered key should be public-only")
	}
	if pub.Address() != key.Address() {
		t.Error("neutered key should keep the address")
	}
	if _, err := pub.Signer(); err == nil {
		t.Error("public-only key should not produce a signer")
	}
}
