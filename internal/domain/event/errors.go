package event

import "github.com/event-sphere-org/event-service/internal/pkg/apperror"

// Event ドメインのエラー定義
var (
	ErrEventNotFound          = apperror.New(apperror.NotFound, "イベントが見つかりません")
	ErrTitleAlreadyExists     = apperror.New(apperror.AlreadyExists, "このタイトルは既に登録されています")
	ErrInvalidTitleLength     = apperror.New(apperror.NotValid, "タイトルは3文字以上50文字以内である必要があります")
	ErrDescriptionTooLong     = apperror.New(apperror.NotValid, "説明は300文字以内である必要があります")
	ErrLocationTooShort       = apperror.New(apperror.NotValid, "開催場所は3文字以上である必要があります")
	ErrInvalidTime            = apperror.New(apperror.NotValid, "開始時刻はHH:MM:SS形式である必要があります")
	ErrDateRequired           = apperror.New(apperror.NotValid, "開催日は必須です")
	ErrDateNotInFuture        = apperror.New(apperror.NotValid, "開催日は未来の日付である必要があります")
	ErrEventNotValid          = apperror.New(apperror.NotValid, "イベントのデータが不正です")
	ErrOptimisticLockConflict = apperror.New(apperror.Conflict, "楽観的ロックの競合が発生しました")
)
