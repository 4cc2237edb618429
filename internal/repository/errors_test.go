package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestClassifyMySQL(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"bad conn", driver.ErrBadConn, KindTransient},
		{"invalid conn", mysql.ErrInvalidConn, KindTransient},
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, KindTransient},
		{"wrapped refused", fmt.Errorf("open: %w", syscall.ECONNREFUSED), KindTransient},
		{"unexpected eof", io.ErrUnexpectedEOF, KindTransient},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"too many connections", &mysql.MySQLError{Number: 1040}, KindTransient},
		{"lock wait", &mysql.MySQLError{Number: 1205}, KindTransient},
		{"deadlock", fmt.Errorf("tx: %w", &mysql.MySQLError{Number: 1213}), KindTransient},
		{"duplicate", &mysql.MySQLError{Number: 1062}, KindPermanent},
		{"fk violation", &mysql.MySQLError{Number: 1452}, KindPermanent},
		{"data too long", &mysql.MySQLError{Number: 1406}, KindPermanent},
		{"cancelled", context.Canceled, KindPermanent},
		{"unknown", errors.New("weird"), KindPermanent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyMySQL("op", tc.err)
			assert.Equal(t, tc.want, KindOf(err))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestClassifyMySQL_ConstraintViolations(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'uniq'"}, ErrConflict},
		{"parent referenced", &mysql.MySQLError{Number: 1451}, ErrConflict},
		{"missing parent", fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1452}), ErrInvalidReference},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyMySQL("shifts.add", tc.err)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, tc.err)
			assert.False(t, IsTransient(err))
		})
	}

	err := classifyMySQL("op", &mysql.MySQLError{Number: 1406})
	assert.NotErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrInvalidReference)
}

func TestClassifyMySQL_KeepsExistingClassification(t *testing.T) {
	nf := NotFound("employees.update")
	assert.Same(t, nf, classifyMySQL("outer", nf))
	assert.Nil(t, classifyMySQL("op", nil))
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, KindPermanent, KindOf(errors.New("x")))
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(fmt.Errorf("wrap: %w", Transient("op", io.EOF))))
}

func TestClassifySurreal(t *testing.T) {
	assert.True(t, IsTransient(classifySurreal("op", io.EOF)))
	assert.True(t, IsTransient(classifySurreal("op", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED})))
	assert.False(t, IsTransient(classifySurreal("op", errors.New("There was a problem with the database: Parse error"))))
	assert.False(t, IsTransient(classifySurreal("op", context.Canceled)))
}
