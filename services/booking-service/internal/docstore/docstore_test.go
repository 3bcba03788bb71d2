package docstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/source"
)

// memoryDynamo is a single-table fake that understands the key shapes the store uses.
type memoryDynamo struct {
	items        map[string]map[string]types.AttributeValue
	pageSize     int
	transactions []int
	queries      int
	failWrites   error
}

func newMemoryDynamo() *memoryDynamo {
	return &memoryDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func str(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (m *memoryDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: m.items[str(in.Key["pk"])+"|"+str(in.Key["sk"])]}, nil
}

func (m *memoryDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.queries++
	pk := str(in.ExpressionAttributeValues[":pk"])
	prefix := str(in.ExpressionAttributeValues[":prefix"])

	var keys []string
	for k := range m.items {
		parts := strings.SplitN(k, "|", 2)
		if parts[0] == pk && strings.HasPrefix(parts[1], prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if in.ExclusiveStartKey != nil {
		after := str(in.ExclusiveStartKey["pk"]) + "|" + str(in.ExclusiveStartKey["sk"])
		i := sort.SearchStrings(keys, after)
		if i < len(keys) && keys[i] == after {
			i++
		}
		keys = keys[i:]
	}

	out := &dynamodb.QueryOutput{}
	for i, k := range keys {
		if m.pageSize > 0 && i == m.pageSize {
			last := out.Items[len(out.Items)-1]
			out.LastEvaluatedKey = map[string]types.AttributeValue{"pk": last["pk"], "sk": last["sk"]}
			break
		}
		out.Items = append(out.Items, m.items[k])
	}
	return out, nil
}

func (m *memoryDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	if m.failWrites != nil {
		return nil, m.failWrites
	}
	if len(in.TransactItems) > maxTransactItems {
		return nil, errors.New("too many transact items")
	}
	m.transactions = append(m.transactions, len(in.TransactItems))
	for _, ti := range in.TransactItems {
		item := ti.Put.Item
		m.items[str(item["pk"])+"|"+str(item["sk"])] = item
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func newTestStore(t *testing.T, db *memoryDynamo) *Store {
	t.Helper()
	s, err := New(db, "booking-catalog", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

var weekdays = model.WeeklyHours{
	"monday":  {IsOpen: true, OpenTime: "09:00", CloseTime: "17:00"},
	"sunday":  {IsOpen: false},
	"tuesday": {IsOpen: true, OpenTime: "10:00", CloseTime: "18:30"},
}

func TestStore_ApplyThenRead(t *testing.T) {
	db := newMemoryDynamo()
	store := newTestStore(t, db)
	ctx := context.Background()

	err := store.Apply(ctx, source.CatalogWrite{
		BusinessID:    "biz-1",
		BusinessHours: weekdays,
		Staff: []model.StaffMember{
			{ID: "staff-alice", FirstName: "Alice", LastName: "Martin"},
			{ID: "staff-bob", FirstName: "Bob", LastName: "Durand"},
		},
		StaffHours: map[string]model.WeeklyHours{"staff-alice": weekdays},
		Services: []model.Service{
			{ID: "svc-cut", Title: "Coupe", Price: 25, Duration: model.ServiceDuration{Minutes: 30}},
		},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	hours, err := store.GetBusinessHours(ctx, "biz-1")
	if err != nil {
		t.Fatalf("GetBusinessHours: %v", err)
	}
	if hours["tuesday"] != weekdays["tuesday"] {
		t.Fatalf("tuesday = %+v", hours["tuesday"])
	}

	staff, err := store.ListStaff(ctx, "biz-1")
	if err != nil {
		t.Fatalf("ListStaff: %v", err)
	}
	if len(staff) != 2 || staff[0].BusinessID != "biz-1" {
		t.Fatalf("unexpected staff: %+v", staff)
	}

	alice, err := store.GetStaff(ctx, "staff-alice")
	if err != nil || alice.FullName() != "Alice Martin" {
		t.Fatalf("GetStaff = %+v, %v", alice, err)
	}

	if _, err := store.GetStaffHours(ctx, "staff-bob"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for staff without hours, got %v", err)
	}

	svc, err := store.GetService(ctx, "svc-cut")
	if err != nil || svc.Duration.TotalMinutes() != 30 || svc.BusinessID != "biz-1" {
		t.Fatalf("GetService = %+v, %v", svc, err)
	}
	services, err := store.ListServices(ctx, "biz-1")
	if err != nil || len(services) != 1 {
		t.Fatalf("ListServices = %+v, %v", services, err)
	}
}

func TestStore_ListStaffFollowsPagination(t *testing.T) {
	db := newMemoryDynamo()
	store := newTestStore(t, db)
	ctx := context.Background()

	var staff []model.StaffMember
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		staff = append(staff, model.StaffMember{ID: id, FirstName: strings.ToUpper(id)})
	}
	if err := store.Apply(ctx, source.CatalogWrite{BusinessID: "biz-1", Staff: staff}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	db.pageSize = 2
	got, err := store.ListStaff(ctx, "biz-1")
	if err != nil {
		t.Fatalf("ListStaff: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 staff across pages, got %d", len(got))
	}
	if db.queries != 3 {
		t.Fatalf("expected 3 pages, got %d", db.queries)
	}
}

func TestStore_ApplySplitsLargeBatches(t *testing.T) {
	db := newMemoryDynamo()
	store := newTestStore(t, db)

	var services []model.Service
	for i := 0; i < 60; i++ {
		services = append(services, model.Service{
			ID:       "svc-" + string(rune('A'+i%26)) + string(rune('a'+i/26)),
			Title:    "Service",
			Duration: model.ServiceDuration{Hours: 1},
		})
	}
	if err := store.Apply(context.Background(), source.CatalogWrite{BusinessID: "biz-1", Services: services}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(db.transactions) != 2 || db.transactions[0] != 100 || db.transactions[1] != 20 {
		t.Fatalf("unexpected transaction sizes: %v", db.transactions)
	}
}

func TestStore_ApplyRejectsInvalidHours(t *testing.T) {
	db := newMemoryDynamo()
	store := newTestStore(t, db)

	err := store.Apply(context.Background(), source.CatalogWrite{
		BusinessID:    "biz-1",
		BusinessHours: model.WeeklyHours{"monday": {IsOpen: true, OpenTime: "25:00", CloseTime: "26:00"}},
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if len(db.transactions) != 0 {
		t.Fatalf("nothing should be written")
	}
}

func TestStore_ApplyWrapsWriteFailures(t *testing.T) {
	db := newMemoryDynamo()
	db.failWrites = errors.New("ProvisionedThroughputExceeded")
	store := newTestStore(t, db)

	err := store.Apply(context.Background(), source.CatalogWrite{BusinessID: "biz-1", BusinessHours: weekdays})
	if !errors.Is(err, db.failWrites) {
		t.Fatalf("expected wrapped write failure, got %v", err)
	}
}

func TestNew_RequiresClientAndTable(t *testing.T) {
	if _, err := New(nil, "t", nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := New(newMemoryDynamo(), "", nil); err == nil {
		t.Fatalf("expected error for empty table")
	}
}
