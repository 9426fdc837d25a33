package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/revealstash/internal/consignment"
	"github.com/illarion/revealstash/internal/crypto"
	"github.com/illarion/revealstash/internal/git"
	"github.com/illarion/revealstash/internal/security"
	"github.com/illarion/revealstash/internal/state"
	"github.com/illarion/revealstash/internal/storage"
)

const (
	StashFile           = ".revealstash"
	FilePermSecure      = 0600     // File: owner rw only
	MaxConsignmentSize  = 64 << 20 // Largest consignment file Import reads
	passwordCheckString = "revealstash-password-check"
	checksumKey         = "checksum"
)

var (
	ErrNotInitialized   = errors.New("revealstash not initialized")
	ErrAlreadyExists    = errors.New("revealstash already exists")
	ErrWrongPassword    = errors.New("wrong password")
	ErrPasswordRequired = errors.New("password required")
	ErrEmptyStash       = errors.New("no nodes in stash")
	ErrNodeNotFound     = errors.New("node not found")
	ErrAmbiguousID      = errors.New("ambiguous node id")
)

// Stash keeps contract nodes encrypted at rest and upgrades them as more
// revealed consignments are imported.
type Stash struct {
	path       string
	workdir    *security.Workdir
	logger     *zap.Logger
	iterations int
}

// Option configures a Stash
type Option func(*Stash)

// WithLogger sets the diagnostic logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Stash) {
		s.logger = logger
	}
}

// WithIterations overrides the KDF iteration count used by Init and ChangePassword
func WithIterations(iterations int) Option {
	return func(s *Stash) {
		s.iterations = iterations
	}
}

// New creates a Stash for the working directory dir
func New(dir string, opts ...Option) (*Stash, error) {
	workdir, err := security.Open(dir)
	if err != nil {
		return nil, err
	}

	s := &Stash{
		path:       filepath.Join(workdir.Path(), StashFile),
		workdir:    workdir,
		logger:     zap.NewNop(),
		iterations: crypto.DefaultIters,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases resources held by the Stash
func (s *Stash) Close() error {
	if s.workdir != nil {
		return s.workdir.Close()
	}
	return nil
}

// Path returns the location of the stash database
func (s *Stash) Path() string {
	return s.path
}

func (s *Stash) open() (*storage.Storage, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, ErrNotInitialized
	}
	db, err := storage.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func (s *Stash) newKDF() (*crypto.KDF, error) {
	kdf, err := crypto.NewKDF()
	if err != nil {
		return nil, fmt.Errorf("failed to create KDF: %w", err)
	}
	kdf.Iterations = s.iterations
	return kdf, nil
}

func passwordCheck() []byte {
	checksum := sha256.Sum256([]byte(passwordCheckString))
	return []byte(hex.EncodeToString(checksum[:]))
}

func privateAAD(key string) []byte { return []byte("private:" + key) }

func nodeAAD(id string) []byte { return []byte("node:" + id) }

// Init creates a new stash protected by password
func (s *Stash) Init(password []byte) error {
	if _, err := os.Stat(s.path); err == nil {
		return ErrAlreadyExists
	}

	db, err := storage.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	kdf, err := s.newKDF()
	if err != nil {
		return err
	}
	enc, err := crypto.NewEncryptor(kdf.DeriveKey(password))
	if err != nil {
		return err
	}
	defer enc.Destroy()

	check, err := enc.Seal(passwordCheck(), privateAAD(checksumKey))
	if err != nil {
		return fmt.Errorf("failed to encrypt checksum: %w", err)
	}

	err = db.Update(func(tx *storage.Tx) error {
		if err := tx.SetKDF(kdf.Salt, uint32(kdf.Iterations)); err != nil {
			return err
		}
		return tx.StorePrivate(checksumKey, check)
	})
	if err != nil {
		return fmt.Errorf("failed to store key material: %w", err)
	}

	s.logger.Debug("stash initialized", zap.String("path", s.path), zap.Int("iterations", kdf.Iterations))
	return nil
}

// unlock derives the stash key and verifies it against the password check
func (s *Stash) unlock(db *storage.Storage, password []byte) (*crypto.Encryptor, error) {
	if password == nil {
		return nil, ErrPasswordRequired
	}

	salt, err := db.GetSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to get salt: %w", err)
	}
	iterations, err := db.GetIterations()
	if err != nil {
		return nil, fmt.Errorf("failed to get iterations: %w", err)
	}

	kdf := &crypto.KDF{Salt: salt, Iterations: int(iterations)}
	enc, err := crypto.NewEncryptor(kdf.DeriveKey(password))
	if err != nil {
		return nil, err
	}

	sealed, err := db.GetPrivate(checksumKey)
	if err != nil {
		enc.Destroy()
		return nil, ErrWrongPassword
	}
	check, err := enc.Open(sealed, privateAAD(checksumKey))
	if err != nil || !crypto.ConstantTimeCompare(check, passwordCheck()) {
		enc.Destroy()
		return nil, ErrWrongPassword
	}
	return enc, nil
}

func (s *Stash) loadNode(db *storage.Storage, enc *crypto.Encryptor, id string) (consignment.Node, error) {
	sealed, err := db.GetNode(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return consignment.Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
		return consignment.Node{}, err
	}

	data, err := enc.Open(sealed, nodeAAD(id))
	if err != nil {
		return consignment.Node{}, fmt.Errorf("failed to decrypt node %s: %w", id, err)
	}
	defer crypto.ClearBytes(data)

	var n consignment.Node
	if err := json.Unmarshal(data, &n); err != nil {
		return consignment.Node{}, fmt.Errorf("corrupt node %s: %w", id, err)
	}
	if n.ID.String() != id {
		return consignment.Node{}, fmt.Errorf("corrupt node %s: stored under the wrong id", id)
	}
	return n, nil
}

func storeNode(tx *storage.Tx, enc *crypto.Encryptor, n consignment.Node, source string) error {
	id := n.ID.String()
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode node %s: %w", id, err)
	}
	defer crypto.ClearBytes(data)

	sealed, err := enc.Seal(data, nodeAAD(id))
	if err != nil {
		return fmt.Errorf("failed to encrypt node %s: %w", id, err)
	}
	if err := tx.StoreNode(id, sealed); err != nil {
		return err
	}
	return tx.PutIndex(indexEntry(n, source))
}

func indexEntry(n consignment.Node, source string) storage.IndexEntry {
	return storage.IndexEntry{
		ID:          n.ID.String(),
		Type:        n.Type.String(),
		Rights:      n.Rights.Len(),
		States:      n.Rights.StateCount(),
		Disclosures: disclosureCounts(n.Rights),
		Source:      source,
		Updated:     time.Now().UTC(),
	}
}

func disclosureCounts(rights state.OwnedRights) map[string]int {
	counts := make(map[string]int)
	for _, d := range state.Disclosures {
		if n := rights.CountDisclosure(d); n > 0 {
			counts[d.String()] = n
		}
	}
	return counts
}

// resolveID expands a unique id prefix to a full node id
func resolveID(db *storage.Storage, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrNodeNotFound)
	}

	ids, err := db.ListNodeIDs()
	if err != nil {
		return "", err
	}
	var match string
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: %s", ErrAmbiguousID, prefix)
		}
		match = id
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrNodeNotFound, prefix)
	}
	return match, nil
}

// Show decrypts a single node. id may be any unique prefix of the node id.
func (s *Stash) Show(ctx context.Context, password []byte, id string) (*consignment.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	enc, err := s.unlock(db, password)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	full, err := resolveID(db, id)
	if err != nil {
		return nil, err
	}
	n, err := s.loadNode(db, enc, full)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Export writes the selected nodes, or every node when ids is empty, to a
// consignment file in the working directory. With conceal set every state
// is written fully confidential. It returns the number of nodes written.
func (s *Stash) Export(ctx context.Context, password []byte, out string, ids []string, conceal bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	validOut, err := s.workdir.Clean(out)
	if err != nil {
		return 0, fmt.Errorf("invalid output path %s: %w", out, err)
	}
	format, err := consignment.FormatFromPath(validOut)
	if err != nil {
		return 0, err
	}

	db, err := s.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	enc, err := s.unlock(db, password)
	if err != nil {
		return 0, err
	}
	defer enc.Destroy()

	if len(ids) == 0 {
		ids, err = db.ListNodeIDs()
		if err != nil {
			return 0, err
		}
		if len(ids) == 0 {
			return 0, ErrEmptyStash
		}
	}

	nodes := make([]consignment.Node, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		full, err := resolveID(db, id)
		if err != nil {
			return 0, err
		}
		n, err := s.loadNode(db, enc, full)
		if err != nil {
			return 0, err
		}
		nodes = append(nodes, n)
	}

	c, err := consignment.New(nodes...)
	if err != nil {
		return 0, err
	}
	if conceal {
		c = consignment.Conceal(c)
	}

	data, err := consignment.Encode(c, format)
	if err != nil {
		return 0, err
	}
	if err := s.workdir.WriteFile(validOut, data, FilePermSecure); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", validOut, err)
	}

	s.logger.Debug("exported consignment",
		zap.String("path", validOut),
		zap.Int("nodes", len(c.Nodes)),
		zap.Bool("conceal", conceal))
	return len(c.Nodes), nil
}

// StatusInfo is the password-free view of a stash
type StatusInfo struct {
	LastModified  time.Time
	Algorithm     string
	KDFIterations uint32
	Version       int
	Summary       storage.Summary
	Nodes         []storage.IndexEntry
	GitStatus     *git.GitStatus
}

// Status reads the unencrypted index. It never needs the password.
func (s *Stash) Status(ctx context.Context) (*StatusInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	lastModified, err := db.GetModified()
	if err != nil {
		// Not critical
		lastModified = time.Time{}
	}
	iterations, err := db.GetIterations()
	if err != nil {
		iterations = 0
	}

	entries, err := db.ListIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	status := &StatusInfo{
		LastModified:  lastModified,
		Algorithm:     "AES-256-GCM",
		KDFIterations: iterations,
		Version:       consignment.Version,
		Summary:       storage.Summarize(entries),
		Nodes:         entries,
	}

	// Only sources that still resolve inside the working directory are checked
	var sources []string
	for _, src := range storage.Sources(entries) {
		if valid, err := s.workdir.CleanStored(src); err == nil {
			sources = append(sources, valid)
		}
	}

	gitStatus, err := git.CheckGitIntegration(s.workdir.Path(), StashFile, sources)
	if err == nil && gitStatus.IsRepo {
		status.GitStatus = gitStatus
	}

	return status, nil
}

// ChangePassword re-encrypts every node under a key derived from newPassword.
// The whole rotation is a single transaction.
func (s *Stash) ChangePassword(currentPassword, newPassword []byte) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	currentEnc, err := s.unlock(db, currentPassword)
	if err != nil {
		return err
	}
	defer currentEnc.Destroy()

	ids, err := db.ListNodeIDs()
	if err != nil {
		return err
	}
	nodes := make([]consignment.Node, 0, len(ids))
	sources := make(map[string]string, len(ids))
	for _, id := range ids {
		n, err := s.loadNode(db, currentEnc, id)
		if err != nil {
			return err
		}
		nodes = append(nodes, n)
		if entry, err := db.GetIndex(id); err == nil {
			sources[id] = entry.Source
		}
	}

	kdf, err := s.newKDF()
	if err != nil {
		return err
	}
	newEnc, err := crypto.NewEncryptor(kdf.DeriveKey(newPassword))
	if err != nil {
		return err
	}
	defer newEnc.Destroy()

	check, err := newEnc.Seal(passwordCheck(), privateAAD(checksumKey))
	if err != nil {
		return fmt.Errorf("failed to encrypt checksum: %w", err)
	}

	err = db.Update(func(tx *storage.Tx) error {
		if err := tx.SetKDF(kdf.Salt, uint32(kdf.Iterations)); err != nil {
			return fmt.Errorf("failed to update KDF: %w", err)
		}
		if err := tx.StorePrivate(checksumKey, check); err != nil {
			return fmt.Errorf("failed to store checksum: %w", err)
		}
		for _, n := range nodes {
			if err := storeNode(tx, newEnc, n, sources[n.ID.String()]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("password changed", zap.Int("nodes", len(nodes)))
	return nil
}

// VerifyPassword checks password without touching any node
func (s *Stash) VerifyPassword(password []byte) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	enc, err := s.unlock(db, password)
	if err != nil {
		return err
	}
	enc.Destroy()
	return nil
}

// Compact reclaims space left behind by rewritten nodes
func (s *Stash) Compact() error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Compact()
}

// GetVaultID returns the id the keyring entry is stored under
func (s *Stash) GetVaultID() (string, error) {
	db, err := s.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.GetVaultID()
}

// GetOrCreateVaultID returns the vault id, creating one on first use
func (s *Stash) GetOrCreateVaultID() (string, error) {
	db, err := s.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.GetOrCreateVaultID()
}
