package notification

import (
	"context"
	"strconv"
)

// Kind は削除通知の対象エンティティ種別
type Kind string

const (
	KindEvent    Kind = "event"
	KindCategory Kind = "category"
	KindUser     Kind = "user"
)

// Valid は既知の種別かどうかを返す
func (k Kind) Valid() bool {
	switch k {
	case KindEvent, KindCategory, KindUser:
		return true
	}
	return false
}

// Notification は削除通知。永続化されないエフェメラルなメッセージ
type Notification struct {
	Kind Kind
	ID   int64
}

// Deleted は削除通知を作成する
func Deleted(kind Kind, id int64) Notification {
	return Notification{Kind: kind, ID: id}
}

// Payload はメッセージ本文（識別子のみ）を返す
func (n Notification) Payload() []byte {
	return []byte(strconv.FormatInt(n.ID, 10))
}

// Publisher は削除通知をブローカーへ送信する
// プロセスで1つだけ生成し、起動時に開いて終了時に閉じる
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
	Close() error
}

// RoutingKeys は種別ごとのルーティングキー
type RoutingKeys map[Kind]string

// For は種別に対応するルーティングキーを返す
func (r RoutingKeys) For(kind Kind) (string, error) {
	key, ok := r[kind]
	if !ok || key == "" {
		return "", ErrUnknownKind
	}
	return key, nil
}
