package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MariaStateRepo реализует StateRepo для базы данных MariaDB/MySQL.
// Использует таблицу twin_state с единственной строкой на инсталляцию.
type MariaStateRepo struct {
	db *sql.DB
}

// NewMariaStateRepo создает новый репозиторий состояния для MariaDB.
// Автоматически создает таблицу, если она не существует.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
func NewMariaStateRepo(dsn string) (*MariaStateRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaStateRepo{db: db}

	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

// createTable создает таблицу twin_state, если она не существует.
func (r *MariaStateRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS twin_state (
			id         TINYINT     PRIMARY KEY,
			state      MEDIUMTEXT  NOT NULL,
			updated_at TIMESTAMP   DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE   CURRENT_TIMESTAMP
		) ENGINE=InnoDB
	`

	_, err := r.db.Exec(query)
	if err != nil {
		return fmt.Errorf("ошибка создания таблицы twin_state: %w", err)
	}

	return nil
}

// Save сохраняет снимок состояния в базе данных.
// Использует INSERT ... ON DUPLICATE KEY UPDATE для обновления существующей записи.
func (r *MariaStateRepo) Save(ctx context.Context, state *TwinState) error {
	if state == nil {
		return fmt.Errorf("maria state repo: nil состояние")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("maria state repo: ошибка сериализации: %w", err)
	}

	query := `
		INSERT INTO twin_state (id, state)
		VALUES (1, ?)
		ON DUPLICATE KEY UPDATE state = VALUES(state)
	`

	if _, err := r.db.ExecContext(ctx, query, string(data)); err != nil {
		return fmt.Errorf("maria state repo: ошибка сохранения: %w", err)
	}
	return nil
}

// Load загружает снимок состояния из базы данных.
func (r *MariaStateRepo) Load(ctx context.Context) (*TwinState, bool, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT state FROM twin_state WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("maria state repo: ошибка загрузки: %w", err)
	}

	var state TwinState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, false, fmt.Errorf("maria state repo: ошибка десериализации: %w", err)
	}
	return &state, true, nil
}

// Delete удаляет сохранённое состояние.
func (r *MariaStateRepo) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM twin_state WHERE id = 1`)
	return err
}

// Close закрывает соединение с базой данных.
func (r *MariaStateRepo) Close() error {
	return r.db.Close()
}
