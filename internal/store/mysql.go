package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/logger"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Farmer96/LuckGen/internal/config"
	"github.com/Farmer96/LuckGen/internal/models"
)

// Document is one stored configuration row.
type Document struct {
	ID        string    `gorm:"primaryKey;type:varchar(128)"`
	Body      string    `gorm:"type:longtext;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName pins the table name.
func (Document) TableName() string {
	return "lottery_documents"
}

// OpenMySQL opens a gorm connection pool and migrates the documents table.
func OpenMySQL(cfg *config.MySQLConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect mysql")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, errors.Wrap(err, "migrate lottery_documents")
	}

	logger.Infof("Connected to MySQL %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	return db, nil
}

// MySQL keeps the JSON document in one row of lottery_documents.
type MySQL struct {
	db  *gorm.DB
	key string
}

// NewMySQL creates a store for the row identified by key.
func NewMySQL(db *gorm.DB, key string) *MySQL {
	return &MySQL{db: db, key: key}
}

// Load reads and decodes the row.
func (m *MySQL) Load(ctx context.Context) (*models.LotteryConfig, error) {
	var doc Document
	err := m.db.WithContext(ctx).Where("id = ?", m.key).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load document %s", m.key)
	}
	return decode([]byte(doc.Body))
}

// Save upserts the row.
func (m *MySQL) Save(ctx context.Context, cfg *models.LotteryConfig) error {
	data, err := encode(cfg)
	if err != nil {
		return err
	}
	doc := Document{ID: m.key, Body: string(data), UpdatedAt: time.Now()}
	err = m.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&doc).Error
	return errors.Wrapf(err, "save document %s", m.key)
}

// Delete removes the row.
func (m *MySQL) Delete(ctx context.Context) error {
	err := m.db.WithContext(ctx).Where("id = ?", m.key).Delete(&Document{}).Error
	return errors.Wrapf(err, "delete document %s", m.key)
}
