package daemon

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/warden-panel/warden/internal/config"
)

// Daemon RPC methods. The daemon runs next to the game server and owns
// all file I/O; the panel only sends intent and receives an ack.
const (
	methodCreateBackup  = "/daemon.BackupService/CreateBackup"
	methodDeleteBackup  = "/daemon.BackupService/DeleteBackup"
	methodRestoreBackup = "/daemon.BackupService/RestoreBackup"
)

// Sentinel errors distinguishing transport failures from explicit
// refusals. Callers match with errors.Is.
var (
	ErrUnreachable = errors.New("daemon unreachable")
	ErrRejected    = errors.New("daemon rejected the request")
	ErrNotFound    = errors.New("daemon reports not found")
)

// Client is the contract the backup lifecycle expects from the daemon.
type Client interface {
	CreateBackup(ctx context.Context, serverID, backupUUID, adapter string, ignoredFiles []string) error
	DeleteBackup(ctx context.Context, serverID, backupUUID string) error
	RestoreBackup(ctx context.Context, serverID, backupUUID, downloadURL string, truncate bool) error
}

// GRPCClient talks to the daemon over mTLS gRPC using loosely-typed
// struct payloads, so the panel and daemon can evolve independently.
type GRPCClient struct {
	addr        string
	certFile    string
	keyFile     string
	caFile      string
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *grpc.ClientConn
}

// NewGRPCClient creates a daemon client from the panel configuration.
func NewGRPCClient(cfg config.DaemonConfig, dialTimeout time.Duration) *GRPCClient {
	return &GRPCClient{
		addr:        cfg.Address,
		certFile:    cfg.CertFile,
		keyFile:     cfg.KeyFile,
		caFile:      cfg.CAFile,
		dialTimeout: dialTimeout,
	}
}

// CreateBackup instructs the daemon to begin a snapshot. The daemon
// acks acceptance; completion arrives later via the callback API.
func (c *GRPCClient) CreateBackup(ctx context.Context, serverID, backupUUID, adapter string, ignoredFiles []string) error {
	ignored := make([]interface{}, 0, len(ignoredFiles))
	for _, pattern := range ignoredFiles {
		ignored = append(ignored, pattern)
	}

	return c.invoke(ctx, methodCreateBackup, map[string]interface{}{
		"server_id":     serverID,
		"backup_uuid":   backupUUID,
		"adapter":       adapter,
		"ignored_files": ignored,
	})
}

// DeleteBackup removes daemon-side artifacts for a backup. A missing
// backup surfaces as ErrNotFound so callers can treat it as already gone.
func (c *GRPCClient) DeleteBackup(ctx context.Context, serverID, backupUUID string) error {
	return c.invoke(ctx, methodDeleteBackup, map[string]interface{}{
		"server_id":   serverID,
		"backup_uuid": backupUUID,
	})
}

// RestoreBackup instructs the daemon to restore a backup. downloadURL is
// empty for local backups; truncate wipes existing files first.
func (c *GRPCClient) RestoreBackup(ctx context.Context, serverID, backupUUID, downloadURL string, truncate bool) error {
	return c.invoke(ctx, methodRestoreBackup, map[string]interface{}{
		"server_id":    serverID,
		"backup_uuid":  backupUUID,
		"download_url": downloadURL,
		"truncate":     truncate,
	})
}

func (c *GRPCClient) invoke(ctx context.Context, method string, payload map[string]interface{}) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}

	in, err := structpb.NewStruct(payload)
	if err != nil {
		return fmt.Errorf("encode daemon payload: %w", err)
	}

	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, method, in, out); err != nil {
		return mapRPCError(err)
	}

	return nil
}

func (c *GRPCClient) connect(ctx context.Context) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	creds, err := c.transportCredentials()
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, c.addr, grpc.WithTransportCredentials(creds), grpc.WithBlock())
	if err != nil {
		return nil, fmt.Errorf("%w: grpc dial %s: %v", ErrUnreachable, c.addr, err)
	}

	c.conn = conn
	return conn, nil
}

// Close tears down the daemon connection.
func (c *GRPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *GRPCClient) transportCredentials() (credentials.TransportCredentials, error) {
	if c.certFile == "" {
		return insecure.NewCredentials(), nil
	}

	cert, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
	if err != nil {
		return nil, fmt.Errorf("load client cert: %w", err)
	}

	caData, err := os.ReadFile(c.caFile)
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caData) {
		return nil, errors.New("append ca cert failed")
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}), nil
}

// mapRPCError folds gRPC status codes into the client's error taxonomy.
func mapRPCError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	switch st.Code() {
	case codes.OK:
		return nil
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", ErrUnreachable, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	default:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	}
}
