// Package docstore keeps the booking catalog as DynamoDB documents in a single table
// keyed by pk/sk.
//
//	BUSINESS#<id>  HOURS           business weekly hours
//	BUSINESS#<id>  STAFF#<sid>     staff listing entry
//	BUSINESS#<id>  SERVICE#<sid>   service listing entry
//	STAFF#<sid>    PROFILE         staff member by id
//	STAFF#<sid>    HOURS           staff weekly hours
//	SERVICE#<sid>  PROFILE         service by id
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/source"
)

// maxTransactItems is DynamoDB's per-transaction action limit.
const maxTransactItems = 100

type dynamoAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(context.Context, *dynamodb.TransactWriteItemsInput, ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type hoursItem struct {
	PK        string            `dynamodbav:"pk"`
	SK        string            `dynamodbav:"sk"`
	Hours     model.WeeklyHours `dynamodbav:"hours"`
	UpdatedAt string            `dynamodbav:"updatedAt"`
}

type staffItem struct {
	PK        string            `dynamodbav:"pk"`
	SK        string            `dynamodbav:"sk"`
	Staff     model.StaffMember `dynamodbav:"staff"`
	UpdatedAt string            `dynamodbav:"updatedAt"`
}

type serviceItem struct {
	PK        string        `dynamodbav:"pk"`
	SK        string        `dynamodbav:"sk"`
	Service   model.Service `dynamodbav:"service"`
	UpdatedAt string        `dynamodbav:"updatedAt"`
}

const (
	skHours         = "HOURS"
	skProfile       = "PROFILE"
	skStaffPrefix   = "STAFF#"
	skServicePrefix = "SERVICE#"
)

func businessPK(id string) string { return "BUSINESS#" + id }
func staffPK(id string) string    { return "STAFF#" + id }
func servicePK(id string) string  { return "SERVICE#" + id }

type Store struct {
	client dynamoAPI
	table  string
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ source.Catalog       = (*Store)(nil)
	_ source.CatalogWriter = (*Store)(nil)
)

func New(client dynamoAPI, table string, logger *slog.Logger) (*Store, error) {
	if client == nil {
		return nil, errors.New("docstore: dynamodb client is nil")
	}
	if table == "" {
		return nil, errors.New("docstore: table name is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, table: table, logger: logger, now: time.Now}, nil
}

func key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: pk},
		"sk": &types.AttributeValueMemberS{Value: sk},
	}
}

// get loads one document into out, returning model.ErrNotFound when it is absent.
func (s *Store) get(ctx context.Context, pk, sk string, out any) error {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       key(pk, sk),
	})
	if err != nil {
		return fmt.Errorf("docstore: get %s/%s: %w", pk, sk, err)
	}
	if len(resp.Item) == 0 {
		return model.ErrNotFound
	}
	if err := attributevalue.UnmarshalMap(resp.Item, out); err != nil {
		return fmt.Errorf("docstore: decode %s/%s: %w", pk, sk, err)
	}
	return nil
}

// queryPrefix pages through every item of pk whose sort key starts with prefix.
func (s *Store) queryPrefix(ctx context.Context, pk, prefix string) ([]map[string]types.AttributeValue, error) {
	var (
		items []map[string]types.AttributeValue
		start map[string]types.AttributeValue
	)
	for {
		resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: pk},
				":prefix": &types.AttributeValueMemberS{Value: prefix},
			},
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("docstore: query %s/%s: %w", pk, prefix, err)
		}
		items = append(items, resp.Items...)
		if len(resp.LastEvaluatedKey) == 0 {
			return items, nil
		}
		start = resp.LastEvaluatedKey
	}
}

func (s *Store) ListStaff(ctx context.Context, businessID string) ([]model.StaffMember, error) {
	items, err := s.queryPrefix(ctx, businessPK(businessID), skStaffPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]model.StaffMember, 0, len(items))
	for _, item := range items {
		var it staffItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return nil, fmt.Errorf("docstore: decode staff: %w", err)
		}
		out = append(out, it.Staff)
	}
	return out, nil
}

func (s *Store) GetStaff(ctx context.Context, staffID string) (model.StaffMember, error) {
	var it staffItem
	if err := s.get(ctx, staffPK(staffID), skProfile, &it); err != nil {
		return model.StaffMember{}, err
	}
	return it.Staff, nil
}

func (s *Store) GetBusinessHours(ctx context.Context, businessID string) (model.WeeklyHours, error) {
	var it hoursItem
	if err := s.get(ctx, businessPK(businessID), skHours, &it); err != nil {
		return nil, err
	}
	return it.Hours, nil
}

func (s *Store) GetStaffHours(ctx context.Context, staffID string) (model.WeeklyHours, error) {
	var it hoursItem
	if err := s.get(ctx, staffPK(staffID), skHours, &it); err != nil {
		return nil, err
	}
	return it.Hours, nil
}

func (s *Store) ListServices(ctx context.Context, businessID string) ([]model.Service, error) {
	items, err := s.queryPrefix(ctx, businessPK(businessID), skServicePrefix)
	if err != nil {
		return nil, err
	}
	out := make([]model.Service, 0, len(items))
	for _, item := range items {
		var it serviceItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return nil, fmt.Errorf("docstore: decode service: %w", err)
		}
		out = append(out, it.Service)
	}
	return out, nil
}

func (s *Store) GetService(ctx context.Context, serviceID string) (model.Service, error) {
	var it serviceItem
	if err := s.get(ctx, servicePK(serviceID), skProfile, &it); err != nil {
		return model.Service{}, err
	}
	return it.Service, nil
}

// Apply writes the batch as puts, in transactions of at most maxTransactItems. Listing
// entries and by-id documents of one staff member or service always share a
// transaction.
func (s *Store) Apply(ctx context.Context, w source.CatalogWrite) error {
	if err := w.Validate(); err != nil {
		return err
	}
	updatedAt := s.now().UTC().Format(time.RFC3339Nano)

	var groups [][]any
	if w.BusinessHours != nil {
		groups = append(groups, []any{hoursItem{PK: businessPK(w.BusinessID), SK: skHours, Hours: w.BusinessHours, UpdatedAt: updatedAt}})
	}
	for _, m := range w.Staff {
		m.BusinessID = w.BusinessID
		groups = append(groups, []any{
			staffItem{PK: businessPK(w.BusinessID), SK: skStaffPrefix + m.ID, Staff: m, UpdatedAt: updatedAt},
			staffItem{PK: staffPK(m.ID), SK: skProfile, Staff: m, UpdatedAt: updatedAt},
		})
	}
	for id, h := range w.StaffHours {
		groups = append(groups, []any{hoursItem{PK: staffPK(id), SK: skHours, Hours: h, UpdatedAt: updatedAt}})
	}
	for _, svc := range w.Services {
		svc.BusinessID = w.BusinessID
		groups = append(groups, []any{
			serviceItem{PK: businessPK(w.BusinessID), SK: skServicePrefix + svc.ID, Service: svc, UpdatedAt: updatedAt},
			serviceItem{PK: servicePK(svc.ID), SK: skProfile, Service: svc, UpdatedAt: updatedAt},
		})
	}

	var batch []types.TransactWriteItem
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: batch})
		batch = nil
		if err != nil {
			return fmt.Errorf("docstore: write catalog for %s: %w", w.BusinessID, err)
		}
		return nil
	}
	for _, group := range groups {
		if len(batch)+len(group) > maxTransactItems {
			if err := flush(); err != nil {
				return err
			}
		}
		for _, doc := range group {
			item, err := attributevalue.MarshalMap(doc)
			if err != nil {
				return fmt.Errorf("docstore: encode: %w", err)
			}
			batch = append(batch, types.TransactWriteItem{
				Put: &types.Put{TableName: aws.String(s.table), Item: item},
			})
		}
	}
	if err := flush(); err != nil {
		return err
	}
	s.logger.Info("catalog written", "business_id", w.BusinessID, "documents", countDocs(groups))
	return nil
}

func countDocs(groups [][]any) int {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	return n
}
