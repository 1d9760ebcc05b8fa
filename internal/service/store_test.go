package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/X-culture24/my-farm/internal/domain"
	"github.com/X-culture24/my-farm/internal/repository"
	apperrors "github.com/X-culture24/my-farm/pkg/errors"
)

// memStore is an in-memory repository.Store. Transactions are serialized and
// roll back by restoring a snapshot, which is enough to observe atomicity.
type memStore struct {
	mu           sync.Mutex
	sales        map[string]domain.Sale
	orderNumbers map[string]string
	products     map[string]domain.Product

	insertAttempts int
	commits        int
	rollbacks      int
	queryErr       error
}

func newMemStore() *memStore {
	return &memStore{
		sales:        make(map[string]domain.Sale),
		orderNumbers: make(map[string]string),
		products:     make(map[string]domain.Product),
	}
}

func cloneSale(s domain.Sale) domain.Sale {
	s.Items = append([]domain.SaleItem(nil), s.Items...)
	return s
}

func (m *memStore) addProduct(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *memStore) product(id string) domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

func (m *memStore) saleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sales)
}

func (m *memStore) Sales() repository.SaleRepository { return &memSales{memBase{s: m}} }
func (m *memStore) Products() repository.ProductRepository {
	return &memProducts{memBase{s: m}}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sales := make(map[string]domain.Sale, len(m.sales))
	for k, v := range m.sales {
		sales[k] = v
	}
	numbers := make(map[string]string, len(m.orderNumbers))
	for k, v := range m.orderNumbers {
		numbers[k] = v
	}
	products := make(map[string]domain.Product, len(m.products))
	for k, v := range m.products {
		products[k] = v
	}

	if err := fn(&txStore{s: m}); err != nil {
		m.sales, m.orderNumbers, m.products = sales, numbers, products
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

type txStore struct{ s *memStore }

func (t *txStore) Sales() repository.SaleRepository { return &memSales{memBase{s: t.s, inTx: true}} }
func (t *txStore) Products() repository.ProductRepository {
	return &memProducts{memBase{s: t.s, inTx: true}}
}
func (t *txStore) WithinTx(_ context.Context, fn func(repository.Store) error) error {
	return fn(t)
}

// memBase is shared by the repository views. Outside a transaction every
// call takes the store mutex itself.
type memBase struct {
	s    *memStore
	inTx bool
}

type memSales struct{ memBase }

type memProducts struct{ memBase }

func (v *memBase) lock() func() {
	if v.inTx {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

func (v *memSales) Insert(_ context.Context, sale *domain.Sale) (bool, error) {
	defer v.lock()()
	v.s.insertAttempts++
	if _, taken := v.s.orderNumbers[sale.OrderNumber]; taken {
		return false, nil
	}
	v.s.orderNumbers[sale.OrderNumber] = sale.ID
	v.s.sales[sale.ID] = cloneSale(*sale)
	return true, nil
}

func (v *memSales) GetByID(_ context.Context, id string) (*domain.Sale, error) {
	defer v.lock()()
	s, ok := v.s.sales[id]
	if !ok {
		return nil, apperrors.NotFound("sale", id)
	}
	out := cloneSale(s)
	return &out, nil
}

func (v *memSales) GetForUpdate(ctx context.Context, id string) (*domain.Sale, error) {
	return v.GetByID(ctx, id)
}

func (v *memSales) Update(_ context.Context, sale *domain.Sale) error {
	defer v.lock()()
	if _, ok := v.s.sales[sale.ID]; !ok {
		return apperrors.NotFound("sale", sale.ID)
	}
	v.s.sales[sale.ID] = cloneSale(*sale)
	return nil
}

func (v *memSales) inRange(farmID string, from, to time.Time) []domain.Sale {
	out := make([]domain.Sale, 0)
	for _, s := range v.s.sales {
		d := s.OrderDetails.OrderDate
		if s.FarmID == farmID && !d.Before(from) && !d.After(to) {
			out = append(out, cloneSale(s))
		}
	}
	return out
}

func (v *memSales) List(_ context.Context, f repository.SaleFilter) ([]domain.Sale, int, error) {
	defer v.lock()()
	if v.s.queryErr != nil {
		return nil, 0, v.s.queryErr
	}
	matched := make([]domain.Sale, 0)
	for _, s := range v.s.sales {
		switch {
		case s.FarmID != f.FarmID,
			f.Status != "" && s.Status != f.Status,
			f.CustomerType != "" && s.Customer.Type != f.CustomerType,
			f.StartDate != nil && s.OrderDetails.OrderDate.Before(*f.StartDate),
			f.EndDate != nil && s.OrderDetails.OrderDate.After(*f.EndDate):
			continue
		}
		matched = append(matched, cloneSale(s))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OrderDetails.OrderDate.After(matched[j].OrderDetails.OrderDate)
	})
	total := len(matched)
	if f.Offset >= total {
		return []domain.Sale{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}

func (v *memSales) Summary(_ context.Context, farmID string, from, to time.Time) (domain.SalesSummary, error) {
	defer v.lock()()
	if v.s.queryErr != nil {
		return domain.SalesSummary{}, v.s.queryErr
	}
	var sum domain.SalesSummary
	for _, s := range v.inRange(farmID, from, to) {
		sum.TotalSales++
		sum.TotalRevenue = sum.TotalRevenue.Add(s.Totals.Total)
		sum.TotalItems += len(s.Items)
	}
	if sum.TotalSales > 0 {
		sum.AverageOrderValue = sum.TotalRevenue.Div(decimal.NewFromInt(int64(sum.TotalSales))).Round(2)
	}
	return sum, nil
}

func (v *memSales) TopProducts(_ context.Context, farmID string, from, to time.Time, limit int) ([]domain.ProductSales, error) {
	defer v.lock()()
	byName := make(map[string]*domain.ProductSales)
	for _, s := range v.inRange(farmID, from, to) {
		for _, it := range s.Items {
			ps, ok := byName[it.Name]
			if !ok {
				ps = &domain.ProductSales{Name: it.Name}
				byName[it.Name] = ps
			}
			ps.TotalQuantity = ps.TotalQuantity.Add(it.Quantity)
			ps.TotalRevenue = ps.TotalRevenue.Add(it.TotalPrice)
		}
	}
	out := make([]domain.ProductSales, 0, len(byName))
	for _, ps := range byName {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalQuantity.Cmp(out[j].TotalQuantity); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v *memSales) CountByStatus(_ context.Context, farmID string, from, to time.Time) ([]domain.StatusCount, error) {
	defer v.lock()()
	counts := make(map[domain.SaleStatus]int)
	for _, s := range v.inRange(farmID, from, to) {
		counts[s.Status]++
	}
	out := make([]domain.StatusCount, 0, len(counts))
	for st, n := range counts {
		out = append(out, domain.StatusCount{Status: st, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

func (v *memProducts) Create(_ context.Context, p *domain.Product) error {
	defer v.lock()()
	for _, existing := range v.s.products {
		if existing.FarmID == p.FarmID && existing.Name == p.Name {
			return apperrors.Conflict("product already exists")
		}
	}
	v.s.products[p.ID] = *p
	return nil
}

func (v *memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	defer v.lock()()
	p, ok := v.s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

func (v *memProducts) GetByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	defer v.lock()()
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := v.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (v *memProducts) ListByFarm(_ context.Context, farmID string) ([]domain.Product, error) {
	defer v.lock()()
	out := make([]domain.Product, 0)
	for _, p := range v.s.products {
		if p.FarmID == farmID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v *memProducts) ApplySale(_ context.Context, farmID, productID string, quantity, unitPrice decimal.Decimal, at time.Time) (*domain.Product, error) {
	defer v.lock()()
	p, ok := v.s.products[productID]
	if !ok || p.FarmID != farmID {
		return nil, apperrors.NotFound("product", productID)
	}
	if err := p.ApplySale(quantity, unitPrice, at); err != nil {
		return nil, err
	}
	v.s.products[productID] = p
	return &p, nil
}
