package pandda

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/xraph/pandda/admin"
	"github.com/xraph/pandda/audit"
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/validate"
)

// ──────────────────────────────────────────────────
// Admin Management
// ──────────────────────────────────────────────────

func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", newValidationError(validate.Violation{Kind: validate.KindMissingField, Field: "password", Message: "is required", Index: -1})
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", newValidationError(validate.Violation{Kind: validate.KindInvalidField, Field: "password", Message: err.Error(), Index: -1})
	}
	return string(h), nil
}

// CreateAdmin adds a back-office admin. Master only.
func (e *Engine) CreateAdmin(ctx context.Context, actor Actor, email, password string, master bool) (*admin.Admin, error) {
	if err := actor.requireMaster(); err != nil {
		return nil, err
	}
	return e.createAdmin(ctx, actor, email, password, master)
}

// Bootstrap creates the first master admin. It fails with ErrForbidden
// once any admin exists.
func (e *Engine) Bootstrap(ctx context.Context, email, password string) (*admin.Admin, error) {
	existing, err := e.store.ListAdmins(ctx, admin.ListOpts{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrForbidden
	}
	return e.createAdmin(ctx, SystemActor, email, password, true)
}

func (e *Engine) createAdmin(ctx context.Context, actor Actor, email, password string, master bool) (*admin.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, newValidationError(validate.Violation{Kind: validate.KindMissingField, Field: "email", Message: "is required", Index: -1})
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	a := &admin.Admin{
		Entity:       e.entity(),
		ID:           id.NewAdminID(),
		Email:        email,
		PasswordHash: hash,
		Master:       master,
	}
	if err := e.store.CreateAdmin(ctx, a); err != nil {
		return nil, err
	}

	e.recordActivity(ctx, actor, audit.ActionCreateAdmin, a.ID.String(), a.Email)
	return a, nil
}

// GetAdmin retrieves an admin by ID.
func (e *Engine) GetAdmin(ctx context.Context, adminID id.AdminID) (*admin.Admin, error) {
	return e.store.GetAdmin(ctx, adminID)
}

// ListAdmins lists admins.
func (e *Engine) ListAdmins(ctx context.Context, opts admin.ListOpts) ([]*admin.Admin, error) {
	return e.store.ListAdmins(ctx, opts)
}

// SetAdminMaster promotes or demotes an admin. Master only.
func (e *Engine) SetAdminMaster(ctx context.Context, actor Actor, adminID id.AdminID, master bool) (*admin.Admin, error) {
	if err := actor.requireMaster(); err != nil {
		return nil, err
	}

	a, err := e.store.GetAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	a.Master = master
	a.UpdatedAt = e.now().UTC()
	if err := e.store.UpdateAdmin(ctx, a); err != nil {
		return nil, err
	}

	action := audit.ActionPromoteAdmin
	if !master {
		action = audit.ActionDemoteAdmin
	}
	e.recordActivity(ctx, actor, action, a.ID.String(), a.Email)
	return a, nil
}

// ChangeAdminPassword sets a new password. Admins may change their own;
// a master may change anyone's.
func (e *Engine) ChangeAdminPassword(ctx context.Context, actor Actor, adminID id.AdminID, password string) error {
	if actor.ID != adminID {
		if err := actor.requireMaster(); err != nil {
			return err
		}
	}

	a, err := e.store.GetAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	a.UpdatedAt = e.now().UTC()
	return e.store.UpdateAdmin(ctx, a)
}

// DeleteAdmin removes an admin. Master only, and never the actor itself.
func (e *Engine) DeleteAdmin(ctx context.Context, actor Actor, adminID id.AdminID) error {
	if err := actor.requireMaster(); err != nil {
		return err
	}
	if actor.ID == adminID {
		return ErrSelfAction
	}

	a, err := e.store.DeleteAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	e.recordActivity(ctx, actor, audit.ActionDeleteAdmin, a.ID.String(), a.Email)
	return nil
}

// Authenticate checks an email and password pair. Unknown emails and
// wrong passwords both return ErrInvalidCredentials.
func (e *Engine) Authenticate(ctx context.Context, email, password string) (*admin.Admin, error) {
	a, err := e.store.GetAdminByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return a, nil
}
