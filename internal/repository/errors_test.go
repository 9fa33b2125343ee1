package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestIsDuplicate(t *testing.T) {
	dup := &mysql.MySQLError{
		Number:  1062,
		Message: "Duplicate entry 'a@b.c' for key 'users.uniq_users_email_id'",
	}
	if !isDuplicate(dup, "uniq_users_email_id") {
		t.Fatal("duplicate on the named key not recognized")
	}
	if isDuplicate(dup, "uniq_users_contact_no") {
		t.Fatal("matched the wrong key")
	}
	if isDuplicate(errors.New("plain"), "uniq_users_email_id") {
		t.Fatal("matched a non-mysql error")
	}
	other := &mysql.MySQLError{Number: 1054, Message: "Unknown column"}
	if isDuplicate(other, "uniq_users_email_id") {
		t.Fatal("matched a non-duplicate mysql error")
	}
}

func TestIsDuplicateWrapped(t *testing.T) {
	dup := &mysql.MySQLError{
		Number:  1062,
		Message: "Duplicate entry 'x' for key 'permissions.PRIMARY'",
	}
	wrapped := fmt.Errorf("insert permission: %w", dup)
	if !isDuplicate(wrapped, "PRIMARY") {
		t.Fatal("wrapped duplicate not recognized")
	}
}

func TestIsFKViolation(t *testing.T) {
	child := &mysql.MySQLError{
		Number:  1452,
		Message: "Cannot add or update a child row: a foreign key constraint fails (`cms`.`sessions`, CONSTRAINT `fk_sessions_users` FOREIGN KEY (`user_id`) REFERENCES `users` (`id`))",
	}
	parent := &mysql.MySQLError{
		Number:  1451,
		Message: "Cannot delete or update a parent row: a foreign key constraint fails (`cms`.`user_permissions`, CONSTRAINT `fk_user_permissions_permissions` FOREIGN KEY (`permission_slug`) REFERENCES `permissions` (`slug`))",
	}
	if !isFKViolation(child, "fk_sessions_users") {
		t.Fatal("child-side violation not recognized")
	}
	if !isFKViolation(parent, "fk_user_permissions_permissions") {
		t.Fatal("parent-side violation not recognized")
	}
	if isFKViolation(child, "fk_user_permissions_permissions") {
		t.Fatal("matched the wrong constraint")
	}
	if isFKViolation(&mysql.MySQLError{Number: 1062, Message: "fk_sessions_users"}, "fk_sessions_users") {
		t.Fatal("duplicate error treated as FK violation")
	}
}
