package mysql

import (
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/repository/mysql/model"
)

// ER_DUP_ENTRY
const errDuplicateEntry = 1062

// newID returns a time-sortable document identifier
func newID() string {
	return ulid.Make().String()
}

// conflict turns a unique key violation into domain.ErrConflict
func conflict(err error) error {
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == errDuplicateEntry {
		return fmt.Errorf("%w: %s", domain.ErrConflict, myErr.Message)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	return err
}

// AutoMigrate creates or updates every table the repositories use
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Article{},
		&model.User{},
		&model.UserBookmark{},
		&model.UserLike{},
		&model.Comment{},
	)
}
