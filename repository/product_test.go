package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/milosamec/engravape/models"

	"github.com/DATA-DOG/go-sqlmock"
)

var productRowColumns = []string{"id", "user_id", "name", "image", "brand", "category", "description",
	"price", "count_in_stock", "created_at", "updated_at"}

func setupProductRepoTest(t *testing.T) (*ProductRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	return NewProductRepository(db), mock, db
}

func TestProductRepository_FindByIDs(t *testing.T) {
	repo, mock, db := setupProductRepoTest(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM products WHERE id = ANY\\(\\$1::uuid\\[\\]\\)").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow("p-1", "u-1", "Mod", "/images/mod.jpg", "Voopoo", "Mods", "Box mod", 49.99, 5, now, now))

	products, err := repo.FindByIDs(context.Background(), []string{"p-1", "p-unknown"})
	if err != nil {
		t.Fatalf("FindByIDs returned error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("Expected 1 product, got %d", len(products))
	}
	if p := products["p-1"]; p.Price != 49.99 || p.CountInStock != 5 {
		t.Errorf("Unexpected product: %+v", p)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestProductRepository_FindByIDs_EmptySkipsQuery(t *testing.T) {
	repo, mock, db := setupProductRepoTest(t)
	defer db.Close()

	products, err := repo.FindByIDs(context.Background(), nil)
	if err != nil || len(products) != 0 {
		t.Errorf("Expected empty result, got %v, %v", products, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestProductRepository_Search(t *testing.T) {
	repo, mock, db := setupProductRepoTest(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM products WHERE name ILIKE \\$1").
		WithArgs("%coil%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery("SELECT (.+) FROM products WHERE name ILIKE \\$1 ORDER BY created_at DESC LIMIT \\$2 OFFSET \\$3").
		WithArgs("%coil%", 10, 10).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow("p-9", "u-1", "Mesh coil", "", "", "Coils", "", 9.5, 40, now, now))

	products, total, err := repo.Search(context.Background(), "coil", 10, 10)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if total != 11 || len(products) != 1 {
		t.Errorf("Expected total 11 and one product, got %d and %d", total, len(products))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestProductRepository_Update_NotFound(t *testing.T) {
	repo, mock, db := setupProductRepoTest(t)
	defer db.Close()

	mock.ExpectQuery("UPDATE products SET (.+) WHERE id = \\$1 RETURNING updated_at").
		WillReturnError(sql.ErrNoRows)

	err := repo.Update(context.Background(), &models.Product{ID: "missing"})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestProductRepository_Delete(t *testing.T) {
	repo, mock, db := setupProductRepoTest(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM products WHERE id = \\$1").
		WithArgs("p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM products WHERE id = \\$1").
		WithArgs("p-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "p-1"); err != nil {
		t.Errorf("Expected first delete to succeed, got %v", err)
	}
	if err := repo.Delete(context.Background(), "p-1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
