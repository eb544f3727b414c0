package access

import (
	"errors"

	"shortlink-go/internal/model"
)

type Action string

const (
	ActionDelete Action = "delete"
	ActionList   Action = "list"
	ActionStats  Action = "stats"
)

var (
	ErrUnauthenticated = errors.New("requester not authenticated")
	ErrForbidden       = errors.New("requester does not own short link")
)

// Authorize 所有权校验：仅短链创建者可删除、查看统计；列表要求已登录，范围由查询限定为本人
// 匿名短链（owner 为空）任何人都不可删除
func Authorize(requesterID string, link *model.ShortLink, action Action) error {
	if requesterID == "" {
		return ErrUnauthenticated
	}
	switch action {
	case ActionList:
		return nil
	case ActionDelete, ActionStats:
		if link == nil || !link.IsOwnedBy(requesterID) {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}
