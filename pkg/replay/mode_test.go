package replay

import "testing"

func TestModeCapabilities(t *testing.T) {
	cases := []struct {
		mode       Mode
		name       string
		canExecute bool
		canCollect bool
	}{
		{VerifyMode{}, "VERIFY", false, false},
		{SimulateMode{}, "SIMULATE", true, true},
		{AuditMode{}, "AUDIT", true, true},
	}

	for _, tc := range cases {
		if got := tc.mode.Name(); got != tc.name {
			t.Errorf("%T.Name() = %q, want %q", tc.mode, got, tc.name)
		}
		if got := tc.mode.CanExecute(); got != tc.canExecute {
			t.Errorf("%T.CanExecute() = %v, want %v", tc.mode, got, tc.canExecute)
		}
		if got := tc.mode.CanCollectSideEffects(); got != tc.canCollect {
			t.Errorf("%T.CanCollectSideEffects() = %v, want %v", tc.mode, got, tc.canCollect)
		}
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindVerify, KindSimulate, KindAudit} {
		if !k.Valid() {
			t.Errorf("Kind(%q).Valid() = false, want true", k)
		}
	}
	for _, k := range []Kind{"", "verify", "REPLAY", "AUDITT"} {
		if k.Valid() {
			t.Errorf("Kind(%q).Valid() = true, want false", k)
		}
	}
}

func TestKindMode(t *testing.T) {
	m, err := KindVerify.Mode()
	if err != nil {
		t.Fatalf("KindVerify.Mode() failed: %v", err)
	}
	if _, ok := m.(VerifyMode); !ok {
		t.Errorf("KindVerify resolved to %T, want VerifyMode", m)
	}

	m, err = KindSimulate.Mode()
	if err != nil {
		t.Fatalf("KindSimulate.Mode() failed: %v", err)
	}
	if _, ok := m.(SimulateMode); !ok {
		t.Errorf("KindSimulate resolved to %T, want SimulateMode", m)
	}

	m, err = KindAudit.Mode()
	if err != nil {
		t.Fatalf("KindAudit.Mode() failed: %v", err)
	}
	if _, ok := m.(AuditMode); !ok {
		t.Errorf("KindAudit resolved to %T, want AuditMode", m)
	}

	if _, err := Kind("BOGUS").Mode(); err == nil {
		t.Error("unknown kind resolved without error")
	}
}
