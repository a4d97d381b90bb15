package domain

// AccessLevel 表示一个用户对一份乐谱的有效访问级别。
type AccessLevel int

const (
	AccessNone  AccessLevel = iota // 无任何访问权
	AccessRead                     // 只读
	AccessWrite                    // 可读写
)

// String 返回访问级别的可读名称，主要用于日志。
func (l AccessLevel) String() string {
	switch l {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "none"
	}
}

// EffectiveAccess 计算用户对乐谱的有效访问级别。纯函数，无任何副作用。
// 规则按优先级应用，首个命中即返回:
//  1. 所有者 -> write
//  2. 已接受的 editor 协作 -> write
//  3. 公开乐谱，或已接受的 viewer 协作 -> read
//  4. 其他 -> none
//
// collaborations 应为该乐谱的协作记录列表；pending / rejected 记录在此一律不计。
func EffectiveAccess(userID uint, score *Score, collaborations []Collaboration) AccessLevel {
	if score == nil {
		return AccessNone
	}
	if userID == score.OwnerID {
		return AccessWrite
	}

	hasViewer := false
	for _, c := range collaborations {
		if c.ScoreID != score.ID || c.InviteeID != userID || c.State != CollabStateAccepted {
			continue
		}
		if c.Role == RoleEditor {
			return AccessWrite
		}
		if c.Role == RoleViewer {
			hasViewer = true
		}
	}

	if score.IsPublic || hasViewer {
		return AccessRead
	}
	return AccessNone
}
