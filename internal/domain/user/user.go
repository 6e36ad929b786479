package user

import (
	"context"
	"time"
)

// User はユーザーサービスが所有するユーザーの表示用射影
// このサービスでは永続化しない
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Lookup はユーザーを識別子で解決する
type Lookup interface {
	FindByID(ctx context.Context, id int64) (*User, error)
}

// Cache はユーザー射影のキャッシュ
type Cache interface {
	Get(ctx context.Context, id int64) (*User, error)
	Set(ctx context.Context, u *User, ttl time.Duration) error
	Invalidate(ctx context.Context, id int64) error
}
