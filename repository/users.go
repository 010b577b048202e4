package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repo "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrUsernameTaken is returned when the username is already registered.
var ErrUsernameTaken = goerrors.New("Username already exists", goerrors.CategoryConflict).
	WithTextCode("USERNAME_TAKEN").
	WithCode(goerrors.CodeConflict)

// UserModel is the Bun model for accounts.
type UserModel struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	Name           string    `bun:"name,notnull"`
	Bio            string    `bun:"bio,notnull"`
	Username       string    `bun:"username,notnull,unique"`
	PasswordHash   string    `bun:"password_hash,notnull"`
	AvatarPublicID string    `bun:"avatar_public_id"`
	AvatarURL      string    `bun:"avatar_url"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Users stores accounts on top of the generic Bun repository.
type Users struct {
	repo.Repository[*UserModel]
	db *bun.DB
}

var (
	_ repo.Repository[*UserModel] = (*Users)(nil)
	_ repo.TransactionManager     = (*Users)(nil)
	_ repo.Validator              = (*Users)(nil)
)

// NewUsers creates a new repository.
func NewUsers(db *bun.DB) *Users {
	return &Users{
		Repository: repo.NewRepository[*UserModel](db, repo.ModelHandlers[*UserModel]{
			NewRecord: func() *UserModel { return &UserModel{} },
			GetID: func(u *UserModel) uuid.UUID {
				if u == nil {
					return uuid.Nil
				}
				return u.ID
			},
			SetID: func(u *UserModel, id uuid.UUID) {
				if u != nil {
					u.ID = id
				}
			},
			GetIdentifier: func() string {
				return "username"
			},
		}),
		db: db,
	}
}

// Validate reports whether the repository is usable.
func (r *Users) Validate() error {
	if r.db == nil {
		return errors.New("repository users needs a database")
	}
	if r.Repository == nil {
		return errors.New("repository users should be initialized")
	}
	return nil
}

// MustValidate panics when Validate fails.
func (r *Users) MustValidate() {
	if err := r.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx runs f inside a database transaction.
func (r *Users) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return r.db.RunInTx(ctx, opts, f)
}

// CreateSchema creates the users table when missing.
func (r *Users) CreateSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*UserModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Create inserts a user. Usernames are unique.
func (r *Users) Create(ctx context.Context, record *UserModel, criteria ...repo.InsertCriteria) (*UserModel, error) {
	var created *UserModel
	err := r.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		created, err = r.CreateTx(ctx, tx, record, criteria...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateTx inserts a user inside tx after checking the username is free.
func (r *Users) CreateTx(ctx context.Context, tx bun.IDB, record *UserModel, criteria ...repo.InsertCriteria) (*UserModel, error) {
	prepareUserDefaults(record)

	exists, err := tx.NewSelect().
		Model((*UserModel)(nil)).
		Where("?TableAlias.username = ?", record.Username).
		Exists(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	created, err := r.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
	}
	return created, nil
}

// GetByIdentifier resolves identifier as a username, then as a user id.
func (r *Users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repo.SelectCriteria) (*UserModel, error) {
	return r.GetByIdentifierTx(ctx, r.db, identifier, criteria...)
}

// GetByIdentifierTx is GetByIdentifier inside tx. A miss returns the
// repository record not found error.
func (r *Users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repo.SelectCriteria) (*UserModel, error) {
	for _, opt := range resolveUserIdentifier(identifier) {
		record, err := r.findBy(ctx, tx, opt.column, opt.value, criteria...)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		return record, nil
	}

	return nil, repo.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

// FindByUsername returns the user registered under username.
func (r *Users) FindByUsername(ctx context.Context, username string) (*UserModel, error) {
	record, err := r.findBy(ctx, r.db, "username", username)
	if err != nil {
		return nil, notFound(err)
	}
	return record, nil
}

// FindByID returns the user with the given id.
func (r *Users) FindByID(ctx context.Context, id string) (*UserModel, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	record, err := r.findBy(ctx, r.db, "id", uid)
	if err != nil {
		return nil, notFound(err)
	}
	return record, nil
}

func (r *Users) findBy(ctx context.Context, tx bun.IDB, column string, value any, criteria ...repo.SelectCriteria) (*UserModel, error) {
	record := &UserModel{}
	q := tx.NewSelect().Model(record)
	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

type identifierOption struct {
	column string
	value  any
}

func resolveUserIdentifier(identifier string) []identifierOption {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil
	}

	options := []identifierOption{{column: "username", value: identifier}}
	if uid, err := uuid.Parse(identifier); err == nil {
		options = append(options, identifierOption{column: "id", value: uid})
	}
	return options
}

func prepareUserDefaults(record *UserModel) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
}

func isNotFound(err error) bool {
	return repo.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}

func notFound(err error) error {
	if isNotFound(err) {
		return ErrUserNotFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load user")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
