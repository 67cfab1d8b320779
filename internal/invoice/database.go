package invoice

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const (
	propertyBucketName = "properties"
	recordBucketName   = "records"
	userBucketName     = "users"
	sessionBucketName  = "session"
	settingsBucketName = "settings"
	approvedBucketName = "approved_pending"

	sessionKey = "current"
)

// DB defines the interface for database operations
type DB interface {
	// SaveProperty saves a property to the database
	SaveProperty(property *Property) error

	// GetProperty retrieves a property by ID
	GetProperty(id string) (*Property, error)

	// ListProperties returns all properties, including archived ones
	ListProperties() ([]*Property, error)

	// SaveRecord saves an invoice record to the database
	SaveRecord(record *Record) error

	// GetRecord retrieves an invoice record by ID
	GetRecord(id string) (*Record, error)

	// ListRecords returns all invoice records, newest first
	ListRecords() ([]*Record, error)

	// CountRecords returns the number of stored invoice records
	CountRecords() (int, error)

	// SaveUser saves a user account
	SaveUser(user *User) error

	// GetUserByEmail retrieves a user by email address
	GetUserByEmail(email string) (*User, error)

	// ListUsers returns all user accounts
	ListUsers() ([]*User, error)

	// SetSession persists the current user record
	SetSession(user *User) error

	// GetSession returns the current user, or nil when nobody is logged in
	GetSession() (*User, error)

	// ClearSession removes the current user record
	ClearSession() error

	// GetSetting returns a named setting, or "" when unset
	GetSetting(key string) (string, error)

	// PutSetting stores a named setting
	PutSetting(key, value string) error

	// MarkPendingApproved durably records that a pending e-invoice was approved
	MarkPendingApproved(id string) error

	// ApprovedPending returns the set of approved pending e-invoice IDs
	ApprovedPending() (map[string]bool, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	buckets := []string{
		propertyBucketName,
		recordBucketName,
		userBucketName,
		sessionBucketName,
		settingsBucketName,
		approvedBucketName,
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveProperty saves a property to the database
func (b *BoltDB) SaveProperty(property *Property) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(propertyBucketName))
		data, err := json.Marshal(property)
		if err != nil {
			return fmt.Errorf("marshaling property: %w", err)
		}
		return bucket.Put([]byte(property.ID), data)
	})
}

// GetProperty retrieves a property by ID
func (b *BoltDB) GetProperty(id string) (*Property, error) {
	var property *Property
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(propertyBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("property not found: %s", id)
		}
		return json.Unmarshal(data, &property)
	})
	if err != nil {
		return nil, err
	}
	return property, nil
}

// ListProperties returns all properties, including archived ones
func (b *BoltDB) ListProperties() ([]*Property, error) {
	properties := make([]*Property, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(propertyBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var property Property
			if err := json.Unmarshal(v, &property); err != nil {
				return fmt.Errorf("unmarshaling property: %w", err)
			}
			properties = append(properties, &property)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(properties, func(i, j int) bool {
		return properties[i].Name < properties[j].Name
	})
	return properties, nil
}

// SaveRecord saves an invoice record to the database
func (b *BoltDB) SaveRecord(record *Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordBucketName))
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bucket.Put([]byte(record.ID), data)
	})
}

// GetRecord retrieves an invoice record by ID
func (b *BoltDB) GetRecord(id string) (*Record, error) {
	var record *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("record not found: %s", id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListRecords returns all invoice records, newest first
func (b *BoltDB) ListRecords() ([]*Record, error) {
	records := make([]*Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling record: %w", err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// CountRecords returns the number of stored invoice records
func (b *BoltDB) CountRecords() (int, error) {
	var count int
	err := b.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(recordBucketName)).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SaveUser saves a user account
func (b *BoltDB) SaveUser(user *User) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(userBucketName))
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshaling user: %w", err)
		}
		return bucket.Put([]byte(strings.ToLower(user.Email)), data)
	})
}

// GetUserByEmail retrieves a user by email address
func (b *BoltDB) GetUserByEmail(email string) (*User, error) {
	var user *User
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(userBucketName))
		data := bucket.Get([]byte(strings.ToLower(email)))
		if data == nil {
			return fmt.Errorf("user not found: %s", email)
		}
		return json.Unmarshal(data, &user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns all user accounts
func (b *BoltDB) ListUsers() ([]*User, error) {
	users := make([]*User, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(userBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var user User
			if err := json.Unmarshal(v, &user); err != nil {
				return fmt.Errorf("unmarshaling user: %w", err)
			}
			users = append(users, &user)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// SetSession persists the current user record
func (b *BoltDB) SetSession(user *User) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshaling session user: %w", err)
		}
		return bucket.Put([]byte(sessionKey), data)
	})
}

// GetSession returns the current user, or nil when nobody is logged in
func (b *BoltDB) GetSession() (*User, error) {
	var user *User
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		data := bucket.Get([]byte(sessionKey))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ClearSession removes the current user record
func (b *BoltDB) ClearSession() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionBucketName)).Delete([]byte(sessionKey))
	})
}

// GetSetting returns a named setting, or "" when unset
func (b *BoltDB) GetSetting(key string) (string, error) {
	var value string
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(settingsBucketName)).Get([]byte(key))
		value = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// PutSetting stores a named setting
func (b *BoltDB) PutSetting(key, value string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(settingsBucketName)).Put([]byte(key), []byte(value))
	})
}

// MarkPendingApproved durably records that a pending e-invoice was approved
func (b *BoltDB) MarkPendingApproved(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(approvedBucketName)).Put([]byte(id), []byte("1"))
	})
}

// ApprovedPending returns the set of approved pending e-invoice IDs
func (b *BoltDB) ApprovedPending() (map[string]bool, error) {
	approved := make(map[string]bool)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(approvedBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			approved[string(k)] = true
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
