package identity

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// Principal datang dari identity provider di depan service ini
// (header di-set oleh gateway/auth proxy, kita percaya isinya).
type Principal struct {
	UserID int64
	Roles  []string
}

var ErrNoPrincipal = errors.New("missing authenticated principal")

const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

func FromRequest(r *http.Request) (Principal, error) {
	raw := r.Header.Get("X-User-Id")
	if raw == "" {
		return Principal{}, ErrNoPrincipal
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Principal{}, ErrNoPrincipal
	}
	var roles []string
	for _, part := range strings.Split(r.Header.Get("X-User-Roles"), ",") {
		if t := strings.TrimSpace(part); t != "" {
			roles = append(roles, strings.ToUpper(t))
		}
	}
	return Principal{UserID: id, Roles: roles}, nil
}

func (p Principal) IsStaff() bool {
	for _, r := range p.Roles {
		if r == RoleAdmin || r == RoleStaff {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool {
	for _, r := range p.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// CanActOn: pemilik resource atau staff/admin. Dipakai sekali di pintu
// masuk tiap operasi, bukan tersebar di dalam.
func (p Principal) CanActOn(ownerID int64) bool {
	return p.UserID == ownerID || p.IsStaff()
}
