// Package moderation реализует жизненный цикл заявки на владение магазином
// и построение очереди модерации оператора.
package moderation

import (
	"errors"
	"time"

	"github.com/shopgreen/shopgreen-system/internal/model"
)

// ErrClaimConflict возвращается при попытке подать заявку на магазин,
// по которому уже есть нерассмотренная заявка.
var ErrClaimConflict = errors.New("shop already has a pending ownership claim")

// ErrNoPendingClaim возвращается при решении по магазину без ожидающей заявки.
var ErrNoPendingClaim = errors.New("shop has no pending ownership claim")

// Decision описывает решение оператора по заявке на владение.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ClaimState — снимок состояния заявки одного магазина.
// Нулевое значение означает отсутствие заявки.
type ClaimState struct {
	ClaimantID *int64
	CreatedAt  *time.Time
}

// Pending сообщает, есть ли по магазину нерассмотренная заявка.
func (s ClaimState) Pending() bool {
	return s.ClaimantID != nil
}

// Submit переводит магазин в состояние ожидающей заявки от пользователя userID.
func (s ClaimState) Submit(userID int64, now time.Time) (ClaimState, error) {
	if s.Pending() {
		return s, ErrClaimConflict
	}
	return ClaimState{ClaimantID: &userID, CreatedAt: &now}, nil
}

// Mutation описывает изменения магазина по итогам решения оператора.
// Claimant фиксирует заявителя, по которому принято решение: применение
// мутации сверяет его с текущей заявкой, чтобы решение по снятой заявке
// не затронуло поданную следом новую.
type Mutation struct {
	ShopID   int64
	Claimant int64
	NewOwner *int64
}

// Resolve применяет решение оператора к ожидающей заявке. Принятие назначает
// заявителя владельцем, отклонение лишь снимает заявку: магазин при этом
// не удаляется, в отличие от отклонения новой непроверенной записи.
func Resolve(shopID int64, state ClaimState, decision Decision) (Mutation, error) {
	if !state.Pending() {
		return Mutation{}, ErrNoPendingClaim
	}

	m := Mutation{ShopID: shopID, Claimant: *state.ClaimantID}
	if decision == DecisionAccept {
		m.NewOwner = state.ClaimantID
	}
	return m, nil
}

// BuildQueue строит очередь модерации из коллекции магазинов: по одному
// элементу на магазин, который либо ещё не верифицирован и не имеет владельца,
// либо ожидает решения по заявке на владение. Порядок — порядок поступления,
// без сортировки по приоритету; очередь нигде не хранится.
func BuildQueue(shops []model.Shop) []model.ModerationQueueItem {
	var queue []model.ModerationQueueItem

	for _, shop := range shops {
		pendingClaim := shop.ClaimantID != nil
		newSubmission := shop.Tier() == model.TierUnverified && shop.OwnerID == nil

		if !pendingClaim && !newSubmission {
			continue
		}

		item := model.ModerationQueueItem{
			ShopID:        shop.ID,
			ShopName:      shop.Name,
			Kind:          model.QueueNewSubmission,
			ImageURL:      shop.ImageURL,
			LicenseID:     shop.LicenseID,
			LicenseStatus: shop.LicenseStatus,
			SubmittedBy:   shop.SubmittedBy,
		}
		// Заявка на владение блокирует поле владельца, от которого зависит
		// решение о публикации, поэтому она имеет приоритет над публикацией.
		if pendingClaim {
			item.Kind = model.QueueOwnershipClaim
			item.ClaimantID = shop.ClaimantID
		}

		queue = append(queue, item)
	}

	return queue
}
