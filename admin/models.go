// Package admin defines back-office operators. A master admin may unblock
// customers, delete records and manage other admins.
package admin

import (
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/types"
)

type Admin struct {
	types.Entity
	ID           id.AdminID `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Master       bool       `json:"master"`
}
