package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"vsgifts-api/internal/config"
	"vsgifts-api/internal/util"
)

// Statements holds the CQL used by the repositories. gocql prepares and
// caches each statement on first execution.
type Statements struct {
	InsertAccount      string
	ClaimEmail         string
	ReleaseEmail       string
	GetAccountByID     string
	GetAccountIDByMail string

	InsertProduct string
	GetProduct    string
	ListProducts  string
	DeleteProduct string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id text PRIMARY KEY,
		name text,
		email text,
		password_hash text,
		is_admin boolean,
		is_email_verified boolean,
		status text,
		otp_code text,
		otp_expires_at timestamp,
		otp_attempts int,
		addresses text,
		cart text,
		wishlist list<text>,
		created_at timestamp,
		updated_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS accounts_by_email (
		email text PRIMARY KEY,
		account_id text
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id text PRIMARY KEY,
		name text,
		amt double,
		pic text,
		images list<text>,
		category text,
		description text,
		stock int,
		rating double,
		reviews_count int,
		created_at timestamp,
		updated_at timestamp
	)`,
}

const accountColumns = `id, name, email, password_hash, is_admin, is_email_verified, status,
	otp_code, otp_expires_at, otp_attempts, addresses, cart, wishlist, created_at, updated_at`

const productColumns = `id, name, amt, pic, images, category, description, stock, rating,
	reviews_count, created_at, updated_at`

type ScyllaClient struct {
	Session    *gocql.Session
	Statements Statements
	config     *config.ScyllaConfig
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
		Statements: Statements{
			InsertAccount:      `INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ClaimEmail:         `INSERT INTO accounts_by_email (email, account_id) VALUES (?, ?) IF NOT EXISTS`,
			ReleaseEmail:       `DELETE FROM accounts_by_email WHERE email = ? IF account_id = ?`,
			GetAccountByID:     `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`,
			GetAccountIDByMail: `SELECT account_id FROM accounts_by_email WHERE email = ?`,
			InsertProduct:      `INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			GetProduct:         `SELECT ` + productColumns + ` FROM products WHERE id = ?`,
			ListProducts:       `SELECT ` + productColumns + ` FROM products`,
			DeleteProduct:      `DELETE FROM products WHERE id = ? IF EXISTS`,
		},
	}

	if err := client.migrate(); err != nil {
		session.Close()
		return nil, err
	}

	logger.Info("ScyllaDB client initialized",
		util.Strings("nodes", scyllaConfig.Nodes),
		util.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) migrate() error {
	for _, stmt := range schema {
		if err := s.Session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (s *ScyllaClient) Query(ctx context.Context, stmt string, values ...any) *gocql.Query {
	return s.Session.Query(stmt, values...).WithContext(ctx)
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	var clusterName string
	if err := s.Query(ctx, "SELECT cluster_name FROM system.local").Scan(&clusterName); err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}
	return nil
}

// ScanWithRetry retries transient read failures with a linear backoff.
// gocql.ErrNotFound is returned immediately.
func (s *ScyllaClient) ScanWithRetry(query *gocql.Query, dest ...any) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		err := query.Scan(dest...)
		if err == nil || err == gocql.ErrNotFound {
			return err
		}
		lastErr = err
		if i < 2 {
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}
	return lastErr
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
	}
}
