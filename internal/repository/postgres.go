// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/shopgreen/shopgreen-system/internal/model"
	"github.com/shopgreen/shopgreen-system/internal/moderation"
	"github.com/shopgreen/shopgreen-system/internal/schedule"
	"github.com/shopgreen/shopgreen-system/internal/verification"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrShopNotFound возвращается, если магазин не найден.
	ErrShopNotFound = errors.New("shop not found")
	// ErrSellerExists возвращается при повторном создании профиля продавца.
	ErrSellerExists = errors.New("seller profile already exists")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраи полезны для Serialization Failure или Deadlocks.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя с указанной ролью.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte, role model.Role) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash, role) VALUES ($1, $2, $3) RETURNING id`,
		login, passwordHash, string(role),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, role, created_at FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)

	return &u, nil
}

const shopColumns = `id, name, category, description, address, lat, lng, image_url, website,
	 license_id, hours, score, verified, license_status, owner_id, claimant_id, claimed_at,
	 submitted_by, created_at`

func scanShop(row pgx.Row) (*model.Shop, error) {
	var (
		s             model.Shop
		category      string
		licenseStatus string
		hoursRaw      []byte
	)

	err := row.Scan(&s.ID, &s.Name, &category, &s.Description, &s.Address, &s.Lat, &s.Lng,
		&s.ImageURL, &s.Website, &s.LicenseID, &hoursRaw, &s.Score, &s.Verified, &licenseStatus,
		&s.OwnerID, &s.ClaimantID, &s.ClaimedAt, &s.SubmittedBy, &s.CreatedAt)
	if err != nil {
		return nil, err
	}

	s.Category = model.Category(category)
	s.LicenseStatus = model.LicenseStatus(licenseStatus)

	// Повреждённое расписание из БД не роняет чтение: магазин считается
	// закрытым во все дни до исправления данных.
	if err := json.Unmarshal(hoursRaw, &s.Hours); err != nil {
		s.Hours = schedule.ClosedWeek()
	}

	return &s, nil
}

// CreateShop сохраняет новую запись магазина и возвращает её идентификатор.
// Магазин создаётся неверифицированным, с лицензией в статусе PENDING.
func (r *PostgresRepository) CreateShop(ctx context.Context, shop *model.Shop) (int64, error) {
	hours, err := json.Marshal(shop.Hours)
	if err != nil {
		return 0, fmt.Errorf("marshal hours: %w", err)
	}

	var id int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO shops (name, category, description, address, lat, lng, image_url, website, license_id, hours, submitted_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		shop.Name, string(shop.Category), shop.Description, shop.Address, shop.Lat, shop.Lng,
		shop.ImageURL, shop.Website, shop.LicenseID, hours, shop.SubmittedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert shop: %w", err)
	}

	return id, nil
}

// GetShopByID возвращает магазин по идентификатору.
func (r *PostgresRepository) GetShopByID(ctx context.Context, id int64) (*model.Shop, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+shopColumns+` FROM shops WHERE id = $1`,
		id,
	)

	s, err := scanShop(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShopNotFound
		}
		return nil, fmt.Errorf("get shop: %w", err)
	}

	return s, nil
}

// ShopFilter задаёт условия выборки магазинов.
type ShopFilter struct {
	Name           string
	Category       model.Category
	UnverifiedOnly bool
}

// ListShops возвращает магазины, удовлетворяющие фильтру, в порядке поступления.
func (r *PostgresRepository) ListShops(ctx context.Context, filter ShopFilter) ([]model.Shop, error) {
	query := `SELECT ` + shopColumns + ` FROM shops`
	var conds []string
	var args []any

	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.UnverifiedOnly {
		conds = append(conds, "NOT verified")
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select shops: %w", err)
	}
	defer rows.Close()

	var shops []model.Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return shops, nil
}

// UpdateShop обновляет редактируемые оператором или владельцем поля магазина.
func (r *PostgresRepository) UpdateShop(ctx context.Context, shop *model.Shop) error {
	hours, err := json.Marshal(shop.Hours)
	if err != nil {
		return fmt.Errorf("marshal hours: %w", err)
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE shops
		 SET name = $2, category = $3, description = $4, address = $5, lat = $6, lng = $7,
		     image_url = $8, website = $9, license_id = $10, hours = $11
		 WHERE id = $1`,
		shop.ID, shop.Name, string(shop.Category), shop.Description, shop.Address,
		shop.Lat, shop.Lng, shop.ImageURL, shop.Website, shop.LicenseID, hours,
	)
	if err != nil {
		return fmt.Errorf("update shop: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrShopNotFound
	}

	return nil
}

// DeleteShop удаляет магазин. Используется оператором для отклонения новой
// непроверенной записи — это более жёсткое действие, чем отклонение заявки на владение.
func (r *PostgresRepository) DeleteShop(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM shops WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete shop: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrShopNotFound
	}
	return nil
}

// CastVote атомарно регистрирует голос пользователя и обновляет счёт магазина.
// Уникальность пары (shop_id, user_id) обеспечивает первичный ключ таблицы votes:
// повторный голос не вставляет строку и отклоняется, не меняя счёт.
func (r *PostgresRepository) CastVote(ctx context.Context, shopID, userID int64, positive bool) (int, bool, error) {
	var score int
	var verified bool

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		// Блокируем строку магазина: обновление счёта сериализуется по магазину.
		var dummy int
		err = tx.QueryRow(ctx, `SELECT 1 FROM shops WHERE id = $1 FOR UPDATE`, shopID).Scan(&dummy)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrShopNotFound
			}
			return fmt.Errorf("lock shop: %w", err)
		}

		cmdTag, err := tx.Exec(ctx,
			`INSERT INTO votes (shop_id, user_id, positive) VALUES ($1, $2, $3)
			 ON CONFLICT (shop_id, user_id) DO NOTHING`,
			shopID, userID, positive,
		)
		if err != nil {
			return fmt.Errorf("insert vote: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return verification.ErrDuplicateVote
		}

		delta := -1
		if positive {
			delta = 1
		}

		// Продвижение одностороннее: флаг verified никогда не сбрасывается.
		err = tx.QueryRow(ctx,
			`UPDATE shops
			 SET score = score + $2,
			     verified = verified OR score + $2 >= $3
			 WHERE id = $1
			 RETURNING score, verified`,
			shopID, delta, verification.PromotionThreshold,
		).Scan(&score, &verified)
		if err != nil {
			return fmt.Errorf("update score: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	return score, verified, nil
}

// GetVotesByShop возвращает все голоса магазина в порядке подачи.
func (r *PostgresRepository) GetVotesByShop(ctx context.Context, shopID int64) ([]model.Vote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT shop_id, user_id, positive, created_at FROM votes WHERE shop_id = $1 ORDER BY created_at`,
		shopID,
	)
	if err != nil {
		return nil, fmt.Errorf("select votes: %w", err)
	}
	defer rows.Close()

	var votes []model.Vote
	for rows.Next() {
		var v model.Vote
		if err := rows.Scan(&v.ShopID, &v.UserID, &v.Positive, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes = append(votes, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return votes, nil
}

// SubmitClaim регистрирует заявку на владение магазином условной записью:
// обновление проходит только при отсутствии текущей заявки, что и обеспечивает
// инвариант «не более одной ожидающей заявки на магазин» при конкурентных вызовах.
func (r *PostgresRepository) SubmitClaim(ctx context.Context, shopID, userID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE shops SET claimant_id = $2, claimed_at = now()
		 WHERE id = $1 AND claimant_id IS NULL`,
		shopID, userID,
	)
	if err != nil {
		return fmt.Errorf("submit claim: %w", err)
	}

	if cmdTag.RowsAffected() == 1 {
		return nil
	}

	// Ноль затронутых строк: либо магазин отсутствует, либо заявка уже подана.
	var claimant *int64
	err = r.pool.QueryRow(ctx, `SELECT claimant_id FROM shops WHERE id = $1`, shopID).Scan(&claimant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrShopNotFound
		}
		return fmt.Errorf("check claim: %w", err)
	}

	return moderation.ErrClaimConflict
}

// ApplyClaimMutation применяет решение оператора по заявке: назначает нового
// владельца (при принятии) и снимает заявку. Остальные поля магазина не меняются.
// Обновление проходит только если заявка всё ещё принадлежит заявителю,
// по которому принималось решение: заявка, снятая и поданная заново другим
// пользователем между чтением и записью, остаётся нетронутой.
func (r *PostgresRepository) ApplyClaimMutation(ctx context.Context, m moderation.Mutation) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE shops
		 SET owner_id = COALESCE($2, owner_id), claimant_id = NULL, claimed_at = NULL
		 WHERE id = $1 AND claimant_id = $3`,
		m.ShopID, m.NewOwner, m.Claimant,
	)
	if err != nil {
		return fmt.Errorf("apply claim mutation: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return moderation.ErrNoPendingClaim
	}

	return nil
}

// AddFavorite добавляет магазин в избранное пользователя. Повторное добавление
// не считается ошибкой: операция идемпотентна и безопасна для повторов.
func (r *PostgresRepository) AddFavorite(ctx context.Context, userID, shopID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO favorites (user_id, shop_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, shop_id) DO NOTHING`,
		userID, shopID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrShopNotFound
		}
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

// RemoveFavorite удаляет магазин из избранного. Удаление отсутствующей записи
// не считается ошибкой.
func (r *PostgresRepository) RemoveFavorite(ctx context.Context, userID, shopID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND shop_id = $2`,
		userID, shopID,
	)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}

// GetFavoritesByUser возвращает избранные магазины пользователя в порядке добавления.
func (r *PostgresRepository) GetFavoritesByUser(ctx context.Context, userID int64) ([]model.Shop, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.name, s.category, s.description, s.address, s.lat, s.lng, s.image_url, s.website,
		        s.license_id, s.hours, s.score, s.verified, s.license_status, s.owner_id, s.claimant_id,
		        s.claimed_at, s.submitted_by, s.created_at
		 FROM favorites f
		 JOIN shops s ON s.id = f.shop_id
		 WHERE f.user_id = $1
		 ORDER BY f.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select favorites: %w", err)
	}
	defer rows.Close()

	var shops []model.Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		shops = append(shops, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return shops, nil
}

// CreateSeller сохраняет профиль продавца электронной торговли.
// У пользователя может быть только один профиль: уникальность обеспечивает
// ограничение на user_id.
func (r *PostgresRepository) CreateSeller(ctx context.Context, seller *model.Seller) (int64, error) {
	links, err := json.Marshal(seller.Links)
	if err != nil {
		return 0, fmt.Errorf("marshal links: %w", err)
	}

	categories := make([]string, 0, len(seller.Categories))
	for _, c := range seller.Categories {
		categories = append(categories, string(c))
	}

	var id int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO sellers (user_id, zones, categories, links, avatar_url, bio)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		seller.UserID, seller.Zones, categories, links, seller.AvatarURL, seller.Bio,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, ErrSellerExists
		}
		return 0, fmt.Errorf("insert seller: %w", err)
	}

	return id, nil
}

// SellerFilter задаёт условия выборки продавцов электронной торговли.
type SellerFilter struct {
	Zone     string
	Category model.Category
}

// ListSellers возвращает профили продавцов, удовлетворяющие фильтру,
// в порядке поступления. Имя пользователя подтягивается из учётной записи.
func (r *PostgresRepository) ListSellers(ctx context.Context, filter SellerFilter) ([]model.Seller, error) {
	query := `SELECT s.id, s.user_id, u.login, s.zones, s.categories, s.links, s.avatar_url, s.bio, s.created_at
		 FROM sellers s
		 JOIN users u ON u.id = s.user_id`
	var conds []string
	var args []any

	if filter.Zone != "" {
		args = append(args, filter.Zone)
		conds = append(conds, fmt.Sprintf("$%d = ANY(s.zones)", len(args)))
	}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		conds = append(conds, fmt.Sprintf("$%d = ANY(s.categories)", len(args)))
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY s.created_at, s.id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select sellers: %w", err)
	}
	defer rows.Close()

	var sellers []model.Seller
	for rows.Next() {
		var (
			s          model.Seller
			categories []string
			linksRaw   []byte
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.Username, &s.Zones, &categories,
			&linksRaw, &s.AvatarURL, &s.Bio, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan seller: %w", err)
		}

		for _, c := range categories {
			s.Categories = append(s.Categories, model.Category(c))
		}
		// Повреждённые ссылки не роняют выдачу каталога.
		if err := json.Unmarshal(linksRaw, &s.Links); err != nil {
			s.Links = nil
		}

		sellers = append(sellers, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return sellers, nil
}

// LicenseCheck описывает магазин, ожидающий проверки лицензии в реестре.
type LicenseCheck struct {
	ShopID    int64
	LicenseID string
}

// GetShopsForLicenseCheck возвращает магазины, лицензии которых ещё не проверены.
func (r *PostgresRepository) GetShopsForLicenseCheck(ctx context.Context, limit int) ([]LicenseCheck, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, license_id FROM shops
		 WHERE license_status = $1 AND license_id <> ''
		 ORDER BY created_at
		 LIMIT $2`,
		string(model.LicensePending), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select shops for license check: %w", err)
	}
	defer rows.Close()

	var res []LicenseCheck
	for rows.Next() {
		var lc LicenseCheck
		if err := rows.Scan(&lc.ShopID, &lc.LicenseID); err != nil {
			return nil, fmt.Errorf("scan license check: %w", err)
		}
		res = append(res, lc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateLicenseStatus фиксирует результат проверки лицензии в реестре.
func (r *PostgresRepository) UpdateLicenseStatus(ctx context.Context, shopID int64, status model.LicenseStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE shops SET license_status = $2 WHERE id = $1`,
		shopID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update license status: %w", err)
	}
	return nil
}
