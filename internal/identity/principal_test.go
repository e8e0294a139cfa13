package identity

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/orders/1", nil)
	r.Header.Set("X-User-Id", "42")
	r.Header.Set("X-User-Roles", "staff, admin")

	p, err := FromRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.UserID != 42 {
		t.Errorf("UserID = %d, want 42", p.UserID)
	}
	if len(p.Roles) != 2 || p.Roles[0] != "STAFF" || p.Roles[1] != "ADMIN" {
		t.Errorf("Roles = %v, want [STAFF ADMIN]", p.Roles)
	}
}

func TestFromRequest_Missing(t *testing.T) {
	r := httptest.NewRequest("GET", "/orders/1", nil)
	if _, err := FromRequest(r); !errors.Is(err, ErrNoPrincipal) {
		t.Fatalf("got %v, want ErrNoPrincipal", err)
	}

	r.Header.Set("X-User-Id", "bukan-angka")
	if _, err := FromRequest(r); !errors.Is(err, ErrNoPrincipal) {
		t.Fatalf("got %v, want ErrNoPrincipal", err)
	}
}

func TestCanActOn(t *testing.T) {
	owner := Principal{UserID: 7}
	stranger := Principal{UserID: 8}
	staff := Principal{UserID: 9, Roles: []string{RoleStaff}}
	admin := Principal{UserID: 10, Roles: []string{RoleAdmin}}

	if !owner.CanActOn(7) {
		t.Error("owner must act on own resource")
	}
	if stranger.CanActOn(7) {
		t.Error("stranger must not act on someone else's resource")
	}
	if !staff.CanActOn(7) || !admin.CanActOn(7) {
		t.Error("staff and admin may act on any resource")
	}
}

func TestIsAdmin(t *testing.T) {
	if (Principal{Roles: []string{RoleStaff}}).IsAdmin() {
		t.Error("staff is not admin")
	}
	if !(Principal{Roles: []string{RoleAdmin}}).IsAdmin() {
		t.Error("admin should be admin")
	}
	if !(Principal{Roles: []string{RoleStaff}}).IsStaff() {
		t.Error("staff should be staff")
	}
	if !(Principal{Roles: []string{RoleAdmin}}).IsStaff() {
		t.Error("admin counts as staff")
	}
}
