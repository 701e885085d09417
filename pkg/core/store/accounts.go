package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"finagent/pkg/apperr"
	"finagent/pkg/model"
)

// AccountFilter is the filter set accepted by find_accounts.
type AccountFilter struct {
	AccountType *model.AccountType
	Source      *model.Source
	IsActive    *bool
	NameLike    *string
	Page        int
	PageSize    int
}

// FindAccounts implements find_accounts: paginated, filtered reads over the
// account forest.
func (s *Store) FindAccounts(ctx context.Context, f AccountFilter) ([]model.Account, int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	where, args := buildAccountWhere(f)

	var total int
	countQuery := "SELECT COUNT(*) FROM accounts " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, wrapTransient(err, "count accounts: %v", err)
	}

	query := fmt.Sprintf(`
		SELECT account_id, name, account_type, parent_account_id, source, description, is_active
		FROM accounts %s
		ORDER BY account_id ASC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapTransient(err, "query accounts: %v", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, wrapTransient(err, "scan account: %v", err)
		}
		out = append(out, a)
	}
	return out, total, nil
}

func scanAccount(r row) (model.Account, error) {
	var a model.Account
	var accountType, source string
	err := r.Scan(&a.AccountID, &a.Name, &accountType, &a.ParentAccountID, &source, &a.Description, &a.IsActive)
	if err != nil {
		return a, err
	}
	a.AccountType = model.AccountType(accountType)
	a.Source = model.Source(source)
	return a, nil
}

func buildAccountWhere(f AccountFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	i := 1

	add := func(clause string, val interface{}) {
		clauses = append(clauses, fmt.Sprintf(clause, i))
		args = append(args, val)
		i++
	}

	if f.AccountType != nil {
		add("account_type = $%d", string(*f.AccountType))
	}
	if f.Source != nil {
		add("source = $%d", string(*f.Source))
	}
	if f.IsActive != nil {
		add("is_active = $%d", *f.IsActive)
	}
	if f.NameLike != nil {
		add("name ILIKE $%d", "%"+*f.NameLike+"%")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// maxHierarchyDepth bounds account_hierarchy's iterative expansion so a
// data-entry cycle in parent_account_id can never loop forever.
const maxHierarchyDepth = 64

// AccountHierarchy implements account_hierarchy: an iterative (non-recursive)
// breadth-first expansion of rootID's descendants, stopping at
// maxHierarchyDepth so a cycle in parent_account_id degrades to a truncated
// tree instead of an infinite walk.
func (s *Store) AccountHierarchy(ctx context.Context, rootID string) (*model.AccountNode, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	root, err := s.getAccount(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, apperr.DataNotFound("account %q not found", rootID)
	}

	rootNode := &model.AccountNode{Account: *root}
	visited := map[string]bool{rootID: true}
	frontier := []*model.AccountNode{rootNode}

	for depth := 0; depth < maxHierarchyDepth && len(frontier) > 0; depth++ {
		ids := make([]string, len(frontier))
		nodeByID := make(map[string]*model.AccountNode, len(frontier))
		for i, n := range frontier {
			ids[i] = n.Account.AccountID
			nodeByID[n.Account.AccountID] = n
		}

		children, err := s.childrenOf(ctx, ids)
		if err != nil {
			return nil, err
		}

		var next []*model.AccountNode
		for parentID, kids := range children {
			parentNode := nodeByID[parentID]
			for _, kid := range kids {
				if visited[kid.AccountID] {
					continue // cycle guard: never revisit an account already placed in the tree
				}
				visited[kid.AccountID] = true
				childNode := &model.AccountNode{Account: kid}
				parentNode.Children = append(parentNode.Children, childNode)
				next = append(next, childNode)
			}
		}
		frontier = next
	}

	return rootNode, nil
}

// GetAccount implements get_account: a single account lookup by id.
func (s *Store) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	a, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.DataNotFound("account %q not found", accountID)
	}
	return a, nil
}

func (s *Store) getAccount(ctx context.Context, accountID string) (*model.Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT account_id, name, account_type, parent_account_id, source, description, is_active
		FROM accounts WHERE account_id = $1
	`, accountID)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapTransient(err, "get account %s: %v", accountID, err)
	}
	return &a, nil
}

func (s *Store) childrenOf(ctx context.Context, parentIDs []string) (map[string][]model.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT account_id, name, account_type, parent_account_id, source, description, is_active
		FROM accounts WHERE parent_account_id = ANY($1)
	`, parentIDs)
	if err != nil {
		return nil, wrapTransient(err, "query children: %v", err)
	}
	defer rows.Close()

	out := make(map[string][]model.Account)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, wrapTransient(err, "scan child account: %v", err)
		}
		if a.ParentAccountID != nil {
			out[*a.ParentAccountID] = append(out[*a.ParentAccountID], a)
		}
	}
	return out, nil
}
