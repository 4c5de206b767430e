package model

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/model_layer/internal/auth/pwd"
	"github.com/R3E-Network/model_layer/internal/identity"
	"github.com/R3E-Network/model_layer/internal/model/filter"
)

// userRow is the full stored shape of a user.
type userRow struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Pwd       *string   `db:"pwd"`
	PwdSalt   uuid.UUID `db:"pwd_salt"`
	TokenSalt uuid.UUID `db:"token_salt"`
	CID       int64     `db:"cid"`
	CTime     time.Time `db:"ctime"`
	MID       int64     `db:"mid"`
	MTime     time.Time `db:"mtime"`
}

// User is the public read shape of a user.
type User struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
}

// UserForCreate is the create shape.
type UserForCreate struct {
	Username string `db:"username" json:"username"`
}

// UserForUpdate is the update shape.
type UserForUpdate struct {
	Username *string `db:"username" json:"username,omitempty"`
}

// UserForLogin carries what the login flow needs to check a password.
type UserForLogin struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Pwd       *string   `db:"pwd"`
	PwdSalt   uuid.UUID `db:"pwd_salt"`
	TokenSalt uuid.UUID `db:"token_salt"`
}

// UserForAuth carries what token verification needs.
type UserForAuth struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	TokenSalt uuid.UUID `db:"token_salt"`
}

type userPwd struct {
	Pwd *string `db:"pwd"`
}

// UserController adds user-specific lookups to the generic controller.
type UserController struct {
	Bmc[User, UserForCreate, UserForUpdate]
}

// UserBmc is the user controller.
var UserBmc = UserController{NewBmc[userRow, User, UserForCreate, UserForUpdate]("user")}

// FirstByUsername returns the user with the given username as read shape E,
// or nil.
func FirstByUsername[E any](ctx context.Context, c identity.Ctx, mm *Manager, username string) (*E, error) {
	byName := filter.Group{"username": {{Op: filter.OpEq, Value: username}}}
	return First[E](ctx, c, mm, UserBmc.Desc, []filter.Group{byName}, nil)
}

// GetUserAs reads a user as any read shape.
func GetUserAs[E any](ctx context.Context, c identity.Ctx, mm *Manager, id int64) (E, error) {
	return Get[E](ctx, c, mm, UserBmc.Desc, id)
}

// UpdatePwd hashes clear with the user's password salt and stores it.
func (uc UserController) UpdatePwd(ctx context.Context, c identity.Ctx, mm *Manager, h *pwd.Hasher, id int64, clear string) error {
	u, err := Get[UserForLogin](ctx, c, mm, uc.Desc, id)
	if err != nil {
		return err
	}
	hashed, err := h.Hash(pwd.ContentToHash{Content: clear, Salt: u.PwdSalt})
	if err != nil {
		return err
	}
	return Update(ctx, c, mm, uc.Desc, id, userPwd{Pwd: &hashed})
}
