package services

import "errors"

// ErrorKind classifies a failure so transports can map it without parsing
// messages.
type ErrorKind string

const (
	KindNotStarted       ErrorKind = "NotStarted"
	KindEnded            ErrorKind = "Ended"
	KindNotInvited       ErrorKind = "NotInvited"
	KindNameMismatch     ErrorKind = "NameMismatch"
	KindNoChancesLeft    ErrorKind = "NoChancesLeft"
	KindUserNotFound     ErrorKind = "UserNotFound"
	KindStoreUnavailable ErrorKind = "StoreUnavailable"
	KindNotConfigured    ErrorKind = "NotConfigured"
	KindPrizeNotFound    ErrorKind = "PrizeNotFound"
	KindInvalidConfig    ErrorKind = "InvalidConfig"
)

// Error is a user-facing failure. Msg is shown to participants as is.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

var (
	ErrNotStarted       = &Error{Kind: KindNotStarted, Msg: "活动尚未开始。"}
	ErrEnded            = &Error{Kind: KindEnded, Msg: "活动已结束。"}
	ErrNotInvited       = &Error{Kind: KindNotInvited, Msg: "您不在受邀名单中，请联系管理员。"}
	ErrNameMismatch     = &Error{Kind: KindNameMismatch, Msg: "姓名与注册的手机号不匹配。"}
	ErrNoChancesLeft    = &Error{Kind: KindNoChancesLeft, Msg: "您的抽奖次数已用完。"}
	ErrUserNotFound     = &Error{Kind: KindUserNotFound, Msg: "用户未找到"}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable, Msg: "保存失败，请稍后重试"}
	ErrNotConfigured    = &Error{Kind: KindNotConfigured, Msg: "系统错误：未找到抽奖活动数据。"}
	ErrPrizeNotFound    = &Error{Kind: KindPrizeNotFound, Msg: "指定的奖项不存在"}
	ErrInvalidConfig    = &Error{Kind: KindInvalidConfig, Msg: "配置无效"}
)

// KindOf returns the kind of the first *Error in err's chain, or "" when err
// carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
