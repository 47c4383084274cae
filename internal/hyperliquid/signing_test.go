package hyperliquid

import "testing"

// Well-known throwaway development key; never holds funds.
const devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestNewSignerDerivesAddress(t *testing.T) {
	signer, err := NewSigner(devKey, false)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	want := "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	if got := signer.Address().Hex(); got != want {
		t.Errorf("address = %s, want %s", got, want)
	}

	// 0x prefix must be accepted too.
	prefixed, err := NewSigner("0x"+devKey, false)
	if err != nil {
		t.Fatalf("NewSigner with prefix: %v", err)
	}
	if prefixed.Address() != signer.Address() {
		t.Error("prefixed and bare keys must derive the same address")
	}
}

func TestNewSignerRejectsBadKey(t *testing.T) {
	if _, err := NewSigner("zz", false); err == nil {
		t.Error("expected error for invalid hex key")
	}
}

func TestSignActionShape(t *testing.T) {
	signer, err := NewSigner(devKey, true)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	action := cancelAction{Type: "cancel", Cancels: []cancelWire{{Asset: 1, OID: 42}}}
	sig, err := signer.SignAction(action, 1700000000000)
	if err != nil {
		t.Fatalf("SignAction: %v", err)
	}

	if len(sig.R) != 66 || len(sig.S) != 66 {
		t.Errorf("R/S lengths = %d/%d, want 66/66", len(sig.R), len(sig.S))
	}
	if sig.V != 27 && sig.V != 28 {
		t.Errorf("V = %d, want 27 or 28", sig.V)
	}

	// Same action and nonce must sign identically.
	again, err := signer.SignAction(action, 1700000000000)
	if err != nil {
		t.Fatalf("SignAction: %v", err)
	}
	if again != sig {
		t.Error("signature must be deterministic for identical input")
	}

	// A different nonce changes the connection id and the signature.
	other, err := signer.SignAction(action, 1700000000001)
	if err != nil {
		t.Fatalf("SignAction: %v", err)
	}
	if other == sig {
		t.Error("different nonces must not produce the same signature")
	}
}

func TestActionHashStable(t *testing.T) {
	action := orderAction{Type: "order", Grouping: "na"}
	a, err := actionHash(action, 1)
	if err != nil {
		t.Fatalf("actionHash: %v", err)
	}
	b, err := actionHash(action, 1)
	if err != nil {
		t.Fatalf("actionHash: %v", err)
	}
	if a != b {
		t.Error("hash must be stable for identical input")
	}
	c, _ := actionHash(action, 2)
	if a == c {
		t.Error("nonce must be part of the hash")
	}
}
