// Package verification реализует учёт голосов сообщества и проекцию статуса магазина.
package verification

import (
	"errors"
	"time"

	"github.com/shopgreen/shopgreen-system/internal/model"
	"github.com/shopgreen/shopgreen-system/internal/schedule"
)

// PromotionThreshold задаёт счёт, при достижении которого магазин считается верифицированным.
const PromotionThreshold = 8

// ErrDuplicateVote возвращается при повторном голосе пользователя за тот же магазин.
// Повторный голос отклоняется, а не перезаписывает предыдущий.
var ErrDuplicateVote = errors.New("user already voted for this shop")

// Tier возвращает уровень доверия по накопленному счёту голосов.
func Tier(score int) model.VerificationTier {
	if score >= PromotionThreshold {
		return model.TierVerified
	}
	return model.TierUnverified
}

// Ledger — снимок голосов одного магазина, на котором выполняются проверки.
// Сериализацию конкурентных голосов обеспечивает уникальный индекс в хранилище,
// а не этот тип: он валидирует только переданный ему снимок.
type Ledger struct {
	votes map[int64]bool
	score int
}

// NewLedger строит снимок голосов магазина. Счёт всегда равен
// числу голосов «за» минус число голосов «против».
func NewLedger(votes []model.Vote) *Ledger {
	l := &Ledger{votes: make(map[int64]bool, len(votes))}
	for _, v := range votes {
		l.votes[v.UserID] = v.Positive
		if v.Positive {
			l.score++
		} else {
			l.score--
		}
	}
	return l
}

// Score возвращает текущий агрегированный счёт голосов.
func (l *Ledger) Score() int {
	return l.score
}

// VoteResult содержит счёт и уровень доверия после успешного голоса.
type VoteResult struct {
	Score int
	Tier  model.VerificationTier
}

// CastVote регистрирует голос пользователя в снимке. Единственная мутация
// журнала; отзыв голоса не предусмотрен.
func (l *Ledger) CastVote(userID int64, positive bool) (VoteResult, error) {
	if _, ok := l.votes[userID]; ok {
		return VoteResult{}, ErrDuplicateVote
	}

	l.votes[userID] = positive
	if positive {
		l.score++
	} else {
		l.score--
	}

	return VoteResult{Score: l.score, Tier: Tier(l.score)}, nil
}

// Project вычисляет отображаемый статус магазина. Уровень доверия первичен:
// для неверифицированного магазина расписание не оценивается вовсе,
// и статус всегда UNVERIFIED независимо от заявленных часов работы.
func Project(tier model.VerificationTier, week schedule.Week, now time.Time) model.ShopStatus {
	if tier == model.TierUnverified {
		return model.StatusUnverified
	}

	switch schedule.Resolve(week, now) {
	case schedule.AvailabilityOpen:
		return model.StatusOpen
	case schedule.AvailabilityOpeningSoon:
		return model.StatusOpeningSoon
	default:
		return model.StatusClosed
	}
}
