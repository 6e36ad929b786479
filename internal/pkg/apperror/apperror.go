package apperror

import "errors"

// Kind はエラーの分類を表す
type Kind int

const (
	// Internal は分類されていない想定外のエラー
	Internal Kind = iota
	// NotFound は対象エンティティが存在しない
	NotFound
	// AlreadyExists は一意性制約に違反した
	AlreadyExists
	// NotValid は入力値またはストアによる制約違反
	NotValid
	// HasDependents は参照している行があるため削除できない
	HasDependents
	// ReferenceNotFound はリモートサービス上の参照先が存在しない
	ReferenceNotFound
	// RemoteUnavailable はリモートサービスに到達できない
	RemoteUnavailable
	// Conflict は楽観的ロックの競合
	Conflict
)

var kindNames = map[Kind]string{
	Internal:          "INTERNAL",
	NotFound:          "NOT_FOUND",
	AlreadyExists:     "ALREADY_EXISTS",
	NotValid:          "NOT_VALID",
	HasDependents:     "HAS_DEPENDENTS",
	ReferenceNotFound: "REFERENCE_NOT_FOUND",
	RemoteUnavailable: "REMOTE_UNAVAILABLE",
	Conflict:          "CONFLICT",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Internal]
}

// Error は分類付きのドメインエラー
type Error struct {
	Kind    Kind
	Message string
}

// New は新しいドメインエラーを作成する
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf はエラーチェーンから分類を取り出す。分類がなければ Internal
func KindOf(err error) Kind {
	if err == nil {
		return Internal
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Is はエラーチェーンに指定した分類のエラーが含まれるかを返す
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
