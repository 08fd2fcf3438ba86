// services/referral_service.go
package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/growvest/growvest_backend/models"
)

// MaxReferralDepth bounds every graph walk: credit and sales aggregation
// look at most 8 levels down, credit propagation at most 8 levels up.
const MaxReferralDepth = 8

// Descendant annotates a downline user with its referral depth. Depth
// counts hops from the ancestor: 1 = direct referral, 2 = referral of a
// referral, and so on. (The legacy encoding stored depth+2; this hop count
// replaces it, so legacy sublevel = Depth + 1.)
type Descendant struct {
	User  models.User `json:"user"`
	Depth int         `json:"depth"`
}

// Ancestor annotates an upline user with its distance from the starting
// user. ParentLevel 1 is the direct referrer.
type Ancestor struct {
	User        models.User `json:"user"`
	ParentLevel int         `json:"parentLevel"`
}

// ReferralService walks the referral graph. The traversal is an explicit
// frontier BFS over indexed parent/child lookups, so it works against any
// store that can answer "children of these ids" without a graph-native
// query operator.
type ReferralService struct {
	users UserStore
}

func NewReferralService(users UserStore) *ReferralService {
	return &ReferralService{users: users}
}

// Descendants returns every downline user within maxDepth hops, breadth
// first. maxDepth is clamped to MaxReferralDepth. Acyclicity is enforced at
// edge-assignment time (AssignReferrer), so the depth bound is the only
// traversal guard needed.
func (s *ReferralService) Descendants(ctx context.Context, root primitive.ObjectID, maxDepth int) ([]Descendant, error) {
	if maxDepth <= 0 || maxDepth > MaxReferralDepth {
		maxDepth = MaxReferralDepth
	}

	var all []Descendant
	frontier := []primitive.ObjectID{root}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		children, err := s.users.ChildrenOf(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("failed to expand referral level %d: %w", depth, err)
		}
		frontier = frontier[:0]
		for _, child := range children {
			all = append(all, Descendant{User: child, Depth: depth})
			frontier = append(frontier, child.ID)
		}
	}
	return all, nil
}

// DescendantIDs is Descendants flattened to ids.
func (s *ReferralService) DescendantIDs(ctx context.Context, root primitive.ObjectID, maxDepth int) ([]primitive.ObjectID, error) {
	descendants, err := s.Descendants(ctx, root, maxDepth)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(descendants))
	for _, d := range descendants {
		ids = append(ids, d.User.ID)
	}
	return ids, nil
}

// DirectCount counts immediate referrals matching the filter.
func (s *ReferralService) DirectCount(ctx context.Context, userID primitive.ObjectID, f ReferralFilter) (int64, error) {
	return s.users.CountChildren(ctx, userID, f)
}

// IndirectCount counts all descendants within maxDepth matching the filter.
// The walk itself only understands structural predicates, so this is two
// phases: traverse unfiltered, then count the flattened id set against the
// attribute filter.
func (s *ReferralService) IndirectCount(ctx context.Context, userID primitive.ObjectID, f ReferralFilter, maxDepth int) (int64, error) {
	ids, err := s.DescendantIDs(ctx, userID, maxDepth)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.users.CountByIDs(ctx, ids, f)
}

// AllReferrals returns one page of the flattened descendant list, depth
// annotated, ordered by depth then discovery order.
func (s *ReferralService) AllReferrals(ctx context.Context, userID primitive.ObjectID, maxDepth int, page, pageSize int64) ([]Descendant, error) {
	descendants, err := s.Descendants(ctx, userID, maxDepth)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= int64(len(descendants)) {
		return []Descendant{}, nil
	}
	end := start + pageSize
	if end > int64(len(descendants)) {
		end = int64(len(descendants))
	}
	return descendants[start:end], nil
}

// Ancestors walks upward from the user to at most MaxReferralDepth
// referrers, nearest first.
func (s *ReferralService) Ancestors(ctx context.Context, userID primitive.ObjectID) ([]Ancestor, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	var chain []Ancestor
	current := user
	for level := 1; level <= MaxReferralDepth; level++ {
		if current.ReferralID == nil {
			break
		}
		parent, err := s.users.Get(ctx, *current.ReferralID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ancestor at level %d: %w", level, err)
		}
		if parent == nil {
			break
		}
		chain = append(chain, Ancestor{User: *parent, ParentLevel: level})
		current = parent
	}
	return chain, nil
}

// AssignReferrer sets the user's upward referral edge after checking the
// edge cannot close a cycle: the referrer must not be the user itself or
// anywhere in the user's own downline, which is equivalent to the user not
// appearing in the referrer's ancestor chain. The upward check is not depth
// bounded; a cycle is a cycle regardless of distance.
func (s *ReferralService) AssignReferrer(ctx context.Context, userID, referrerID primitive.ObjectID) error {
	if userID == referrerID {
		return models.ErrCycle
	}

	seen := map[primitive.ObjectID]bool{referrerID: true}
	current, err := s.users.Get(ctx, referrerID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("referrer %s not found", referrerID.Hex())
	}
	for current.ReferralID != nil {
		next := *current.ReferralID
		if next == userID {
			return models.ErrCycle
		}
		if seen[next] {
			// Pre-existing corruption; refuse to make it worse.
			return models.ErrCycle
		}
		seen[next] = true
		current, err = s.users.Get(ctx, next)
		if err != nil {
			return err
		}
		if current == nil {
			break
		}
	}

	return s.users.SetReferrer(ctx, userID, referrerID)
}
