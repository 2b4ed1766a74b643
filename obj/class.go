package obj

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/uno-framework/uno/cache"
	"github.com/uno-framework/uno/model"
	"github.com/uno-framework/uno/plugin"
	"github.com/uno-framework/uno/ulog"
	"github.com/uno-framework/uno/vars"
)

// extension points visible to plugins; before-points may veto the write
const (
	hookBeforeSave   = "obj.before_save"
	hookAfterSave    = "obj.after_save"
	hookBeforeDelete = "obj.before_delete"
	hookAfterDelete  = "obj.after_delete"
)

func invokeHookPoint(ctx context.Context, point, table string, payload map[string]interface{}) error {
	payload["table"] = table
	for _, r := range plugin.Invoke(ctx, point, payload) {
		if !r.Ok() {
			return r.Err
		}
	}
	return nil
}

// Class is the active-record binding for one struct type: schema, store,
// optional cache and event bus, validation and lifecycle hooks.
type Class[T any] struct {
	schema *model.Schema
	store  *model.Store
	cache  cache.Cache
	bus    busPublisher
	expose map[string]bool

	cacheTTL time.Duration
	validate func(v interface{}) error

	versionField int // -1 when the class has no version column

	beforeSave   []func(ctx context.Context, v *T) error
	afterSave    []func(ctx context.Context, v *T)
	beforeDelete []func(ctx context.Context, id string) error
	afterDelete  []func(ctx context.Context, id string)
}

type busPublisher interface {
	Publish(ctx context.Context, topic string, data interface{}) error
}

// Register derives the schema for T, binds it to a store and records the
// class in the process-wide registry. Registering the same table twice is
// a programming error and panics, matching how duplicate service names are
// treated elsewhere in uno.
func Register[T any](options ...*Option) *Class[T] {
	option := mergeNewOptions(&Option{}, options...)

	var zero T
	schema, err := model.SchemaOf(&zero)
	if err != nil {
		ulog.Panic().Err(err).Str("type", reflect.TypeOf(zero).String()).Msg("class registration failed")
		return nil
	}
	if _, exists := registry.Get(schema.Table); exists {
		ulog.Panic().Str("same table not allowed to be registered twice!", schema.Table).Send()
		return nil
	}

	c := &Class[T]{
		schema:       schema,
		store:        option.Store,
		cache:        option.Cache,
		expose:       map[string]bool{},
		cacheTTL:     option.CacheTTL,
		validate:     needValidate(schema.Type),
		versionField: versionFieldIndex(schema),
	}
	if option.Bus != nil {
		c.bus = option.Bus
	}
	if c.cacheTTL == 0 {
		c.cacheTTL = time.Minute * 5
	}
	for _, verb := range option.Expose {
		c.expose[verb] = true
	}

	registry.Set(schema.Table, c)
	ulog.Debug().Str("class registered", schema.Table).Send()
	return c
}

func versionFieldIndex(schema *model.Schema) int {
	if f, ok := schema.FieldByColumn("version"); ok && f.GoType.Kind() == reflect.Int64 {
		return f.Index
	}
	return -1
}

// needValidate wires go-playground validation only when the struct carries
// validate tags, so untagged classes pay nothing.
func needValidate(t reflect.Type) func(v interface{}) error {
	hasValidTag := false
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("validate") != "" {
			hasValidTag = true
			break
		}
	}
	if hasValidTag {
		return validator.New().Struct
	}
	return func(v interface{}) error { return nil }
}

func (c *Class[T]) Table() string         { return c.schema.Table }
func (c *Class[T]) Schema() *model.Schema { return c.schema }
func (c *Class[T]) Allowed(verb string) bool {
	return c.expose[verb]
}

// hooks

func (c *Class[T]) BeforeSave(fn func(ctx context.Context, v *T) error) *Class[T] {
	c.beforeSave = append(c.beforeSave, fn)
	return c
}
func (c *Class[T]) AfterSave(fn func(ctx context.Context, v *T)) *Class[T] {
	c.afterSave = append(c.afterSave, fn)
	return c
}
func (c *Class[T]) BeforeDelete(fn func(ctx context.Context, id string) error) *Class[T] {
	c.beforeDelete = append(c.beforeDelete, fn)
	return c
}
func (c *Class[T]) AfterDelete(fn func(ctx context.Context, id string)) *Class[T] {
	c.afterDelete = append(c.afterDelete, fn)
	return c
}

// New returns a T with a fresh uuid primary key when the key is a string.
func (c *Class[T]) New() *T {
	v := new(T)
	pk := reflect.ValueOf(v).Elem().Field(c.schema.PK.Index)
	if pk.Kind() == reflect.String && pk.String() == "" {
		pk.SetString(uuid.NewString())
	}
	return v
}

func (c *Class[T]) pkString(v *T) string {
	pk := reflect.ValueOf(v).Elem().Field(c.schema.PK.Index)
	return fmt.Sprintf("%v", pk.Interface())
}

func (c *Class[T]) pkValue(id string) (interface{}, error) {
	switch c.schema.PK.GoType.Kind() {
	case reflect.String:
		return id, nil
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, vars.Wrap(vars.CodeObj, "pk", fmt.Errorf("%w: %q is not numeric", vars.ErrInvalidField, id))
		}
		return n, nil
	default:
		return nil, vars.Wrap(vars.CodeObj, "pk", fmt.Errorf("unsupported primary key kind %s", c.schema.PK.GoType.Kind()))
	}
}

func (c *Class[T]) cacheKey(id string) string {
	return c.schema.Table + ":" + id
}

// Save validates, runs the before-save chain and upserts by primary key.
// A blank string key gets a uuid; classes with a version column get it
// bumped on every save.
func (c *Class[T]) Save(ctx context.Context, v *T) error {
	for _, hook := range c.beforeSave {
		if err := hook(ctx, v); err != nil {
			return vars.Wrap(vars.CodeObj, "beforeSave", err)
		}
	}
	if err := invokeHookPoint(ctx, hookBeforeSave, c.schema.Table, map[string]interface{}{"value": v}); err != nil {
		return vars.Wrap(vars.CodeObj, "beforeSave", err)
	}
	if err := c.validate(v); err != nil {
		return vars.Wrap(vars.CodeObj, "validate", err)
	}
	rv := reflect.ValueOf(v).Elem()
	pk := rv.Field(c.schema.PK.Index)
	isNew := pk.Kind() == reflect.String && pk.String() == ""
	if isNew {
		pk.SetString(uuid.NewString())
	}
	if c.versionField >= 0 {
		rv.Field(c.versionField).SetInt(rv.Field(c.versionField).Int() + 1)
	}

	var err error
	action := "updated"
	if isNew {
		action = "created"
		err = c.store.Insert(ctx, c.schema, v)
	} else if err = c.store.Update(ctx, c.schema, v); vars.IsNotFound(err) {
		action = "created"
		err = c.store.Insert(ctx, c.schema, v)
	}
	if err != nil {
		return err
	}

	id := c.pkString(v)
	c.dropCached(ctx, id)
	c.publish(ctx, action, id, v)
	for _, hook := range c.afterSave {
		hook(ctx, v)
	}
	invokeHookPoint(ctx, hookAfterSave, c.schema.Table, map[string]interface{}{"id": id, "value": v})
	return nil
}

// Get consults the bound cache before the store.
func (c *Class[T]) Get(ctx context.Context, id string) (*T, error) {
	if c.cache != nil {
		if data, err := c.cache.Get(ctx, c.cacheKey(id)); err == nil {
			v := new(T)
			if err = cache.Decode(data, v); err == nil {
				return v, nil
			}
		}
	}
	pk, err := c.pkValue(id)
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err = c.store.Get(ctx, c.schema, pk, v); err != nil {
		return nil, err
	}
	if c.cache != nil {
		if data, err := cache.Encode(v); err == nil {
			c.cache.Set(ctx, c.cacheKey(id), data, c.cacheTTL)
		}
	}
	return v, nil
}

func (c *Class[T]) Delete(ctx context.Context, id string) error {
	for _, hook := range c.beforeDelete {
		if err := hook(ctx, id); err != nil {
			return vars.Wrap(vars.CodeObj, "beforeDelete", err)
		}
	}
	if err := invokeHookPoint(ctx, hookBeforeDelete, c.schema.Table, map[string]interface{}{"id": id}); err != nil {
		return vars.Wrap(vars.CodeObj, "beforeDelete", err)
	}
	pk, err := c.pkValue(id)
	if err != nil {
		return err
	}
	if err = c.store.Delete(ctx, c.schema, pk); err != nil {
		return err
	}
	c.dropCached(ctx, id)
	c.publish(ctx, "deleted", id, nil)
	for _, hook := range c.afterDelete {
		hook(ctx, id)
	}
	invokeHookPoint(ctx, hookAfterDelete, c.schema.Table, map[string]interface{}{"id": id})
	return nil
}

func (c *Class[T]) Find(ctx context.Context, q *model.Query) ([]T, error) {
	var out []T
	if err := c.store.Select(ctx, c.schema, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Class[T]) Count(ctx context.Context, q *model.Query) (int64, error) {
	return c.store.Count(ctx, c.schema, q)
}

func (c *Class[T]) dropCached(ctx context.Context, id string) {
	if c.cache == nil {
		return
	}
	c.cache.Delete(ctx, c.cacheKey(id))
	if c.bus != nil {
		c.bus.Publish(ctx, "cache.invalidate", map[string]interface{}{"keys": []string{c.cacheKey(id)}})
	}
}

func (c *Class[T]) publish(ctx context.Context, action, id string, v *T) {
	if c.bus == nil {
		return
	}
	topic := "obj." + c.schema.Table + "." + action
	payload := map[string]interface{}{"id": id}
	if v != nil {
		payload["value"] = v
	}
	if err := c.bus.Publish(ctx, topic, payload); err != nil {
		ulog.Warn().Err(err).Str("topic", topic).Msg("object event publish failed")
	}
}

// map-shaped operations used by the endpoint factory and sync server

func (c *Class[T]) decodeMap(data map[string]interface{}, out *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return vars.Wrap(vars.CodeObj, "decode", err)
	}
	return vars.Wrap(vars.CodeObj, "decode", decoder.Decode(data))
}

func (c *Class[T]) GetByID(ctx context.Context, id string) (interface{}, error) {
	return c.Get(ctx, id)
}

func (c *Class[T]) List(ctx context.Context, q *model.Query) (interface{}, error) {
	return c.Find(ctx, q)
}

func (c *Class[T]) CreateFromMap(ctx context.Context, data map[string]interface{}) (interface{}, error) {
	v := new(T)
	if err := c.decodeMap(data, v); err != nil {
		return nil, err
	}
	if err := c.Save(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Class[T]) UpdateFromMap(ctx context.Context, id string, data map[string]interface{}) (interface{}, error) {
	v, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = c.decodeMap(data, v); err != nil {
		return nil, err
	}
	//the path id wins over any id smuggled in the body
	pkVal, err := c.pkValue(id)
	if err != nil {
		return nil, err
	}
	reflect.ValueOf(v).Elem().Field(c.schema.PK.Index).Set(reflect.ValueOf(pkVal).Convert(c.schema.PK.GoType))
	if err = c.Save(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Class[T]) DeleteByID(ctx context.Context, id string) error {
	return c.Delete(ctx, id)
}

func (c *Class[T]) CurrentVersion(ctx context.Context, id string) (int64, error) {
	if c.versionField < 0 {
		return 0, nil
	}
	v, err := c.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return reflect.ValueOf(v).Elem().Field(c.versionField).Int(), nil
}
