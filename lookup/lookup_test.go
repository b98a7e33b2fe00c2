package lookup

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"catalogadmin/models"

	"github.com/go-redis/redismock/v8"
	"github.com/sirupsen/logrus"
	"gotest.tools/assert"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestIndex(t *testing.T) {
	names := Index([]models.Category{{Id: "1", Name: "Shoes"}, {Id: "", Name: "Draft"}, {Id: "2", Name: "Hats"}},
		func(c models.Category) string { return c.Name })

	assert.DeepEqual(t, map[string]string{"1": "Shoes", "2": "Hats"}, names)
}

func TestStoreAndResolve(t *testing.T) {
	ctx := context.Background()
	redisDB, redisMock := redismock.NewClientMock()
	names := New(redisDB, 30*time.Minute, quietLogger())
	key := Key(models.ResourceCategory)

	redisMock.ExpectDel(key).SetVal(1)
	redisMock.ExpectHSet(key, "1", "Shoes", "2", "Hats").SetVal(2)
	redisMock.ExpectExpire(key, 30*time.Minute).SetVal(true)

	names.Store(ctx, models.ResourceCategory, map[string]string{"2": "Hats", "1": "Shoes"})
	assert.Equal(t, nil, redisMock.ExpectationsWereMet())

	// memory hit
	name, ok := names.Resolve(ctx, models.ResourceCategory, "1")
	assert.Equal(t, true, ok)
	assert.Equal(t, "Shoes", name)

	// redis hit
	redisMock.ExpectHGet(key, "3").SetVal("Bags")
	name, ok = names.Resolve(ctx, models.ResourceCategory, "3")
	assert.Equal(t, true, ok)
	assert.Equal(t, "Bags", name)

	// unknown id
	redisMock.ExpectHGet(key, "4").RedisNil()
	_, ok = names.Resolve(ctx, models.ResourceCategory, "4")
	assert.Equal(t, false, ok)

	// redis down
	redisMock.ExpectHGet(key, "5").SetErr(errors.New("connection refused"))
	_, ok = names.Resolve(ctx, models.ResourceCategory, "5")
	assert.Equal(t, false, ok)

	assert.Equal(t, nil, redisMock.ExpectationsWereMet())
	assert.DeepEqual(t, map[string]string{"1": "Shoes", "2": "Hats"}, names.Map(models.ResourceCategory))
}

func TestStoreEmptyListOnlyClears(t *testing.T) {
	redisDB, redisMock := redismock.NewClientMock()
	names := New(redisDB, time.Minute, quietLogger())

	redisMock.ExpectDel(Key(models.ResourceBrand)).SetVal(1)
	names.Store(context.Background(), models.ResourceBrand, map[string]string{})

	assert.Equal(t, nil, redisMock.ExpectationsWereMet())
	assert.Equal(t, 0, len(names.Map(models.ResourceBrand)))
}

func TestStoreKeepsMemoryWhenRedisFails(t *testing.T) {
	redisDB, redisMock := redismock.NewClientMock()
	names := New(redisDB, time.Minute, quietLogger())

	redisMock.ExpectDel(Key(models.ResourceBrand)).SetErr(errors.New("connection refused"))
	names.Store(context.Background(), models.ResourceBrand, map[string]string{"7": "Nike"})

	assert.Equal(t, nil, redisMock.ExpectationsWereMet())
	name, ok := names.Resolve(context.Background(), models.ResourceBrand, "7")
	assert.Equal(t, true, ok)
	assert.Equal(t, "Nike", name)
}

func TestWarm(t *testing.T) {
	ctx := context.Background()
	redisDB, redisMock := redismock.NewClientMock()
	names := New(redisDB, time.Minute, quietLogger())

	redisMock.ExpectHGetAll(Key(models.ResourceBrand)).SetVal(map[string]string{"7": "Nike", "8": "Puma"})
	n, err := names.Warm(ctx, models.ResourceBrand)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, n)

	// already loaded, no redis call
	n, err = names.Warm(ctx, models.ResourceBrand)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, n)

	// error
	redisMock.ExpectHGetAll(Key(models.ResourceCategory)).SetErr(errors.New("connection refused"))
	_, err = names.Warm(ctx, models.ResourceCategory)
	assert.ErrorContains(t, err, "connection refused")

	assert.Equal(t, nil, redisMock.ExpectationsWereMet())
}

func TestMemoryOnly(t *testing.T) {
	names := New(nil, 0, nil)
	names.Store(context.Background(), models.ResourceCategory, map[string]string{"1": "Shoes"})

	name, ok := names.Resolve(context.Background(), models.ResourceCategory, "1")
	assert.Equal(t, true, ok)
	assert.Equal(t, "Shoes", name)

	_, ok = names.Resolve(context.Background(), models.ResourceCategory, "2")
	assert.Equal(t, false, ok)

	n, err := names.Warm(context.Background(), models.ResourceBrand)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, n)
}
