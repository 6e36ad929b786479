package category

import "github.com/event-sphere-org/event-service/internal/pkg/apperror"

// Category ドメインのエラー定義
var (
	ErrCategoryNotFound       = apperror.New(apperror.NotFound, "カテゴリが見つかりません")
	ErrNameAlreadyExists      = apperror.New(apperror.AlreadyExists, "このカテゴリ名は既に登録されています")
	ErrInvalidNameLength      = apperror.New(apperror.NotValid, "カテゴリ名は3文字以上50文字以内である必要があります")
	ErrCategoryHasEvents      = apperror.New(apperror.HasDependents, "カテゴリにイベントが存在するため削除できません")
	ErrCategoryNotValid       = apperror.New(apperror.NotValid, "カテゴリのデータが不正です")
	ErrOptimisticLockConflict = apperror.New(apperror.Conflict, "楽観的ロックの競合が発生しました")
)
