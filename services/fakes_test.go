package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/growvest/growvest_backend/models"
)

// In-memory store fakes. Behavior mirrors the Mongo repositories: unknown
// ids resolve to (nil, nil), settle transitions are guarded on PENDING, and
// the PROFIT (userId, profitPeriod) pair is unique.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[primitive.ObjectID]*models.User)}
}

func (f *fakeUserStore) Get(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByReferralCode(_ context.Context, code string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ReferralCode == code {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) Insert(_ context.Context, user *models.User) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	copied := *user
	f.users[user.ID] = &copied
	return user.ID, nil
}

func (f *fakeUserStore) SetReferrer(_ context.Context, id, referrerID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	ref := referrerID
	u.ReferralID = &ref
	return nil
}

func (f *fakeUserStore) SetTier(_ context.Context, id primitive.ObjectID, level *string, subLevel *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.InvestmentLevel = level
	u.InvestmentSubLevel = subLevel
	return nil
}

func (f *fakeUserStore) IncBalance(_ context.Context, id primitive.ObjectID, field string, delta float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	switch field {
	case "depositBalance":
		u.DepositBalance += delta
	case "profitBalance":
		u.ProfitBalance += delta
	case "referralCreditBalance":
		u.ReferralCreditBalance += delta
	case "rewardBalance":
		u.RewardBalance += delta
	}
	return nil
}

func (f *fakeUserStore) SetBalances(_ context.Context, id primitive.ObjectID, b models.Balances) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.DepositBalance = b.Deposit
	u.ProfitBalance = b.Profit
	u.ReferralCreditBalance = b.Credit
	u.RewardBalance = b.Reward
	return nil
}

func (f *fakeUserStore) ChildrenOf(_ context.Context, parents []primitive.ObjectID) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parentSet := make(map[primitive.ObjectID]bool, len(parents))
	for _, p := range parents {
		parentSet[p] = true
	}
	var children []models.User
	for _, u := range f.users {
		if u.ReferralID != nil && parentSet[*u.ReferralID] {
			children = append(children, *u)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].ID.Hex() < children[j].ID.Hex()
	})
	return children, nil
}

func matchesFilter(u *models.User, f ReferralFilter) bool {
	if f.ActiveOnly && !u.IsActive {
		return false
	}
	if f.CreatedAfter != nil && u.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	return true
}

func (f *fakeUserStore) CountChildren(_ context.Context, parent primitive.ObjectID, filter ReferralFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		if u.ReferralID != nil && *u.ReferralID == parent && matchesFilter(u, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakeUserStore) CountByIDs(_ context.Context, ids []primitive.ObjectID, filter ReferralFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if u, ok := f.users[id]; ok && matchesFilter(u, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakeUserStore) ListInvested(_ context.Context, page, pageSize int64) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var invested []models.User
	for _, u := range f.users {
		if u.IsActive && u.InvestmentLevel != nil {
			invested = append(invested, *u)
		}
	}
	sort.Slice(invested, func(i, j int) bool {
		return invested[i].ID.Hex() < invested[j].ID.Hex()
	})
	return paginateUsers(invested, page, pageSize), nil
}

func (f *fakeUserStore) ListIDs(_ context.Context, page, pageSize int64) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.User
	for _, u := range f.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ID.Hex() < all[j].ID.Hex()
	})
	all = paginateUsers(all, page, pageSize)
	ids := make([]primitive.ObjectID, 0, len(all))
	for _, u := range all {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func paginateUsers(users []models.User, page, pageSize int64) []models.User {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	start := (page - 1) * pageSize
	if start >= int64(len(users)) {
		return nil
	}
	end := start + pageSize
	if end > int64(len(users)) {
		end = int64(len(users))
	}
	return users[start:end]
}

type fakeLedgerStore struct {
	mu  sync.Mutex
	txs []*models.Transaction
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{}
}

func (f *fakeLedgerStore) Insert(_ context.Context, tx *models.Transaction) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx.TransactionType == models.TxTypeProfit && tx.ProfitPeriod != "" {
		for _, existing := range f.txs {
			if existing.TransactionType == models.TxTypeProfit &&
				existing.UserID == tx.UserID && existing.ProfitPeriod == tx.ProfitPeriod {
				return primitive.NilObjectID, ErrDuplicateProfitPeriod
			}
		}
	}
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	copied := *tx
	f.txs = append(f.txs, &copied)
	return tx.ID, nil
}

func (f *fakeLedgerStore) Get(_ context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.txs {
		if tx.ID == id {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeLedgerStore) Settle(_ context.Context, id primitive.ObjectID, status, reason string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.txs {
		if tx.ID == id {
			if tx.Status != models.StatusPending {
				return nil, models.ErrStaleTransition
			}
			tx.Status = status
			tx.RejectionReason = reason
			tx.UpdatedAt = time.Now()
			copied := *tx
			return &copied, nil
		}
	}
	return nil, models.ErrStaleTransition
}

func (f *fakeLedgerStore) SumAmounts(_ context.Context, userID primitive.ObjectID, txType string, statuses []string, since *time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	statusSet := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		statusSet[s] = true
	}
	var total float64
	for _, tx := range f.txs {
		if tx.UserID != userID || tx.TransactionType != txType || !statusSet[tx.Status] {
			continue
		}
		if since != nil && tx.CreatedAt.Before(*since) {
			continue
		}
		total += tx.Amount
	}
	return total, nil
}

func (f *fakeLedgerStore) SumWithdrawals(_ context.Context, userID primitive.ObjectID, withdrawalType string, since *time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total float64
	for _, tx := range f.txs {
		if tx.UserID != userID || tx.TransactionType != models.TxTypeWithdrawal {
			continue
		}
		if tx.WithdrawalType != withdrawalType {
			continue
		}
		if tx.Status != models.StatusPending && tx.Status != models.StatusApproved {
			continue
		}
		if since != nil && tx.CreatedAt.Before(*since) {
			continue
		}
		total += tx.OriginalAmount
	}
	return total, nil
}

func (f *fakeLedgerStore) FirstApprovedDepositAt(_ context.Context, userIDs []primitive.ObjectID) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idSet := make(map[primitive.ObjectID]bool, len(userIDs))
	for _, id := range userIDs {
		idSet[id] = true
	}
	var earliest *time.Time
	for _, tx := range f.txs {
		if tx.TransactionType != models.TxTypeDeposit || tx.Status != models.StatusApproved || !idSet[tx.UserID] {
			continue
		}
		t := tx.CreatedAt
		if earliest == nil || t.Before(*earliest) {
			earliest = &t
		}
	}
	return earliest, nil
}

func (f *fakeLedgerStore) ListByUser(_ context.Context, userID primitive.ObjectID, page, pageSize int64) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []models.Transaction
	for _, tx := range f.txs {
		if tx.UserID == userID {
			list = append(list, *tx)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

type fakeRewardStore struct {
	mu      sync.Mutex
	rewards []*models.Reward
}

func newFakeRewardStore() *fakeRewardStore {
	return &fakeRewardStore{}
}

func (f *fakeRewardStore) Insert(_ context.Context, reward *models.Reward) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reward.ID.IsZero() {
		reward.ID = primitive.NewObjectID()
	}
	copied := *reward
	f.rewards = append(f.rewards, &copied)
	return reward.ID, nil
}

func (f *fakeRewardStore) Get(_ context.Context, id primitive.ObjectID) (*models.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rewards {
		if r.ID == id {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRewardStore) Latest(_ context.Context, userID primitive.ObjectID) (*models.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Reward
	for _, r := range f.rewards {
		if r.UserID != userID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeRewardStore) MarkClaimed(_ context.Context, id primitive.ObjectID) (*models.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rewards {
		if r.ID == id {
			if r.IsClaimed {
				return nil, models.ErrStaleTransition
			}
			r.IsClaimed = true
			r.UpdatedAt = time.Now()
			copied := *r
			return &copied, nil
		}
	}
	return nil, models.ErrStaleTransition
}

func (f *fakeRewardStore) Settle(_ context.Context, id primitive.ObjectID, status, reason string) (*models.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rewards {
		if r.ID == id {
			if r.Status != models.StatusPending {
				return nil, models.ErrStaleTransition
			}
			r.Status = status
			r.Reason = reason
			r.UpdatedAt = time.Now()
			copied := *r
			return &copied, nil
		}
	}
	return nil, models.ErrStaleTransition
}

func (f *fakeRewardStore) SumAmounts(_ context.Context, userID primitive.ObjectID, statuses []string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	statusSet := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		statusSet[s] = true
	}
	var total float64
	for _, r := range f.rewards {
		if r.UserID == userID && statusSet[r.Status] {
			total += r.Amount
		}
	}
	return total, nil
}

func (f *fakeRewardStore) ListByUser(_ context.Context, userID primitive.ObjectID, page, pageSize int64) ([]models.Reward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []models.Reward
	for _, r := range f.rewards {
		if r.UserID == userID {
			list = append(list, *r)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

type fakeProgramStore struct {
	programs []models.Program
	schedule *models.ProfitSchedule
}

func (f *fakeProgramStore) ByLevel(_ context.Context, level string) (*models.Program, error) {
	for i := range f.programs {
		if f.programs[i].Level == level {
			return &f.programs[i], nil
		}
	}
	return nil, nil
}

func (f *fakeProgramStore) All(_ context.Context) ([]models.Program, error) {
	return f.programs, nil
}

func (f *fakeProgramStore) Current(_ context.Context) (*models.ProfitSchedule, error) {
	return f.schedule, nil
}

func (f *fakeProgramStore) SaveSchedule(_ context.Context, schedule *models.ProfitSchedule) (primitive.ObjectID, error) {
	if schedule.ID.IsZero() {
		schedule.ID = primitive.NewObjectID()
	}
	f.schedule = schedule
	return schedule.ID, nil
}

type fakeRankStore struct {
	ranks []models.Rank
}

func (f *fakeRankStore) All(_ context.Context) ([]models.Rank, error) {
	sorted := make([]models.Rank, len(f.ranks))
	copy(sorted, f.ranks)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RequiredSalesFrom < sorted[j].RequiredSalesFrom
	})
	return sorted, nil
}

type notifierCall struct {
	UserID    primitive.ObjectID
	NotifType string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (f *fakeNotifier) Notify(userID primitive.ObjectID, notifType, title, message string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifierCall{UserID: userID, NotifType: notifType})
}

// fakeRankCache is an always-warm in-memory RankCacheStore that records
// which users were invalidated.
type fakeRankCache struct {
	mu          sync.Mutex
	entries     map[primitive.ObjectID]*models.RankInfo
	invalidated []primitive.ObjectID
}

func newFakeRankCache() *fakeRankCache {
	return &fakeRankCache{entries: make(map[primitive.ObjectID]*models.RankInfo)}
}

func (f *fakeRankCache) Get(ctx context.Context, userID primitive.ObjectID) *models.RankInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[userID]
}

func (f *fakeRankCache) Set(ctx context.Context, userID primitive.ObjectID, info *models.RankInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[userID] = info
}

func (f *fakeRankCache) Invalidate(ctx context.Context, userIDs ...primitive.ObjectID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range userIDs {
		delete(f.entries, id)
		f.invalidated = append(f.invalidated, id)
	}
}
