package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Credentials hold the Postgres connection parameters.
type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// SQLStore implements Store on database/sql. The same queries run on
// Postgres (lib/pq) and SQLite (modernc.org/sqlite); the backend is chosen
// explicitly at startup, never switched at runtime.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewPostgresStore(cred *Credentials) (*SQLStore, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &SQLStore{db: db, driver: "postgres"}, nil
}

func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one connection: keeps :memory: databases stable and sidesteps
	// sqlite writer locking
	db.SetMaxOpenConns(1)

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	return &SQLStore{db: db, driver: "sqlite"}, nil
}

func (s *SQLStore) RunMigrations(migrationsPath string) error {
	var (
		m   *migrate.Migrate
		err error
	)
	switch s.driver {
	case "postgres":
		var d migratedb.Driver
		d, err = migratepostgres.WithInstance(s.db, &migratepostgres.Config{})
		if err == nil {
			m, err = migrate.NewWithDatabaseInstance(
				fmt.Sprintf("file://%s", migrationsPath), "postgres", d)
		}
	case "sqlite":
		var d migratedb.Driver
		d, err = migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
		if err == nil {
			m, err = migrate.NewWithDatabaseInstance(
				fmt.Sprintf("file://%s", migrationsPath), "sqlite", d)
		}
	default:
		return fmt.Errorf("unknown sql driver %q", s.driver)
	}
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (s *SQLStore) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT id, name, description, price, created_at
	          FROM products ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p := &domain.Product{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (s *SQLStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT id, name, description, price, created_at
	          FROM products WHERE id = $1`

	p := &domain.Product{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

func (s *SQLStore) ListLines(ctx context.Context, userID string) ([]*domain.CartLine, error) {
	query := `SELECT id, user_id, product_id, quantity, created_at, updated_at
	          FROM cart_items WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	var lines []*domain.CartLine
	for rows.Next() {
		l := &domain.CartLine{}
		if err := rows.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}

func (s *SQLStore) AddLine(ctx context.Context, userID string, productID int64) (*domain.CartLine, error) {
	// existing line for the pair gets its quantity bumped in place
	line, err := s.getLineForProduct(ctx, userID, productID)
	if err != nil && !errors.Is(err, ErrLineNotFound) {
		return nil, err
	}
	if line != nil {
		return s.incrementLine(ctx, line)
	}

	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created := &domain.CartLine{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	insert := `INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6)`
	_, insertErr := s.db.ExecContext(ctx, insert,
		created.ID, created.UserID, created.ProductID, created.Quantity, created.CreatedAt, created.UpdatedAt)
	if insertErr != nil {
		// lost the upsert race: another request created the pair first
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			if line, err := s.getLineForProduct(ctx, userID, productID); err == nil {
				return s.incrementLine(ctx, line)
			}
		}
		return nil, fmt.Errorf("insert cart line: %w", insertErr)
	}
	return created, nil
}

func (s *SQLStore) getLineForProduct(ctx context.Context, userID string, productID int64) (*domain.CartLine, error) {
	query := `SELECT id, user_id, product_id, quantity, created_at, updated_at
	          FROM cart_items WHERE user_id = $1 AND product_id = $2`

	l := &domain.CartLine{}
	err := s.db.QueryRowContext(ctx, query, userID, productID).Scan(
		&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart line: %w", err)
	}
	return l, nil
}

func (s *SQLStore) incrementLine(ctx context.Context, line *domain.CartLine) (*domain.CartLine, error) {
	now := time.Now().UTC()
	update := `UPDATE cart_items SET quantity = quantity + 1, updated_at = $1 WHERE id = $2`
	if _, err := s.db.ExecContext(ctx, update, now, line.ID); err != nil {
		return nil, fmt.Errorf("increment cart line: %w", err)
	}
	line.Quantity++
	line.UpdatedAt = now
	return line, nil
}

func (s *SQLStore) SetQuantity(ctx context.Context, userID, lineID string, quantity int) error {
	owner, err := s.lineOwner(ctx, lineID)
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrNotLineOwner
	}

	if quantity <= 0 {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, lineID); err != nil {
			return fmt.Errorf("delete cart line: %w", err)
		}
		return nil
	}

	update := `UPDATE cart_items SET quantity = $1, updated_at = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, update, quantity, time.Now().UTC(), lineID); err != nil {
		return fmt.Errorf("update cart line quantity: %w", err)
	}
	return nil
}

func (s *SQLStore) RemoveLine(ctx context.Context, userID, lineID string) error {
	owner, err := s.lineOwner(ctx, lineID)
	if errors.Is(err, ErrLineNotFound) {
		return nil // already gone
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrNotLineOwner
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, lineID); err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

func (s *SQLStore) lineOwner(ctx context.Context, lineID string) (string, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM cart_items WHERE id = $1`, lineID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrLineNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query cart line owner: %w", err)
	}
	return owner, nil
}

func (s *SQLStore) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *SQLStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order transaction: %w", err)
	}
	defer tx.Rollback()

	insertOrder := `INSERT INTO orders (id, user_id, total_amount, currency, status, created_at)
	                VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, insertOrder,
		order.ID, order.UserID, order.TotalAmount, order.Currency, order.Status, order.CreatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	insertLine := `INSERT INTO order_items (order_id, product_id, product_name, quantity, price_at_order)
	               VALUES ($1, $2, $3, $4, $5)`
	for _, l := range order.Lines {
		if _, err := tx.ExecContext(ctx, insertLine,
			order.ID, l.ProductID, l.ProductName, l.Quantity, l.PriceAtOrder); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	payload, err := json.Marshal(orderPlacedPayload(order))
	if err != nil {
		return fmt.Errorf("marshal order event payload: %w", err)
	}
	insertEvent := `INSERT INTO order_events (id, aggregate_id, event_type, payload, created_at)
	                VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, insertEvent,
		uuid.New().String(), order.ID, EventTypeOrderPlaced, string(payload), time.Now().UTC()); err != nil {
		return fmt.Errorf("insert order event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	query := `SELECT id, user_id, total_amount, currency, status, created_at
	          FROM orders WHERE id = $1 AND user_id = $2`

	o := &domain.Order{}
	err := s.db.QueryRowContext(ctx, query, orderID, userID).Scan(
		&o.ID, &o.UserID, &o.TotalAmount, &o.Currency, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	lines, err := s.orderLines(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return o, nil
}

func (s *SQLStore) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT id, user_id, total_amount, currency, status, created_at
	          FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o := &domain.Order{}
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Currency, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, o := range orders {
		lines, err := s.orderLines(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		o.Lines = lines
	}
	return orders, nil
}

func (s *SQLStore) orderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	query := `SELECT product_id, product_name, quantity, price_at_order
	          FROM order_items WHERE order_id = $1 ORDER BY product_id`

	rows, err := s.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.Quantity, &l.PriceAtOrder); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}

func (s *SQLStore) DeleteOrder(ctx context.Context, userID, orderID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order lines: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) UnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM order_events WHERE processed_at IS NULL
	          ORDER BY created_at, id LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		ev := &OutboxEvent{}
		var payload string
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		ev.Payload = []byte(payload)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (s *SQLStore) MarkEventProcessed(ctx context.Context, id string) error {
	update := `UPDATE order_events SET processed_at = $1 WHERE id = $2`
	if _, err := s.db.ExecContext(ctx, update, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)
var _ Store = (*MemoryStore)(nil)
