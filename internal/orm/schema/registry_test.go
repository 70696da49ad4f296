package schema

import (
	"errors"
	"reflect"
	"testing"
)

func newPost() *ResourceSchema {
	return Define("Post").
		Field("id", TypeUUID, Primary(), Auto()).
		Field("title", TypeString).
		Field("author_id", TypeUUID, Nullable()).
		BelongsTo("author", "Author").
		HasMany("comments", "Comment").
		Build()
}

func newAuthor() *ResourceSchema {
	return Define("Author").
		Field("id", TypeUUID, Primary(), Auto()).
		Field("name", TypeString).
		HasMany("posts", "Post").
		Build()
}

func newComment() *ResourceSchema {
	return Define("Comment").
		Field("id", TypeInt, Primary(), Auto()).
		Field("body", TypeText).
		Field("post_id", TypeUUID).
		BelongsTo("post", "Post").
		Build()
}

func TestRegistry(t *testing.T) {
	t.Run("register and get schema", func(t *testing.T) {
		registry := NewRegistry()

		if err := registry.Register(newPost()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		retrieved, exists := registry.Get("Post")
		if !exists {
			t.Fatal("schema should exist")
		}
		if retrieved.TableName != "posts" {
			t.Errorf("expected posts, got %s", retrieved.TableName)
		}
	})

	t.Run("duplicate registration", func(t *testing.T) {
		registry := NewRegistry()

		_ = registry.Register(newPost())
		if err := registry.Register(newPost()); err == nil {
			t.Error("expected error for duplicate registration")
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		registry := NewRegistry()
		for _, s := range []*ResourceSchema{newPost(), newComment(), newAuthor()} {
			if err := registry.Register(s); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		want := []string{"Author", "Comment", "Post"}
		if got := registry.List(); !reflect.DeepEqual(got, want) {
			t.Errorf("List() = %v, want %v", got, want)
		}
		if registry.Count() != 3 {
			t.Errorf("expected 3 schemas, got %d", registry.Count())
		}
	})

	t.Run("validate all resolves target tables and foreign keys", func(t *testing.T) {
		registry := NewRegistry()
		for _, s := range []*ResourceSchema{newPost(), newComment(), newAuthor()} {
			_ = registry.Register(s)
		}

		if err := registry.ValidateAll(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		post, _ := registry.Get("Post")
		author := post.Relationships["author"]
		if author.TargetTable != "authors" || author.ForeignKey != "author_id" {
			t.Errorf("author relationship = %+v", author)
		}
		comments := post.Relationships["comments"]
		if comments.TargetTable != "comments" || comments.ForeignKey != "post_id" {
			t.Errorf("comments relationship = %+v", comments)
		}
	})

	t.Run("unknown relationship target", func(t *testing.T) {
		registry := NewRegistry()
		_ = registry.Register(newPost())

		if err := registry.ValidateAll(); err == nil {
			t.Error("expected error for unknown target")
		}
	})

	t.Run("sealed registry rejects registration", func(t *testing.T) {
		registry := NewRegistry()
		_ = registry.Register(newAuthor())
		_ = registry.Register(newPost())
		_ = registry.Register(newComment())

		if err := registry.Seal(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !registry.Sealed() {
			t.Error("registry should be sealed")
		}

		err := registry.Register(Define("Tag").Field("id", TypeInt, Primary()).Build())
		if !errors.Is(err, ErrSealed) {
			t.Errorf("expected ErrSealed, got %v", err)
		}
	})

	t.Run("missing primary key", func(t *testing.T) {
		registry := NewRegistry()
		err := registry.Register(Define("Tag").Field("label", TypeString).Build())
		if err == nil {
			t.Error("expected error for schema without primary key")
		}
	})

	t.Run("implicit id primary key", func(t *testing.T) {
		registry := NewRegistry()
		tag := Define("Tag").Field("id", TypeInt).Field("label", TypeString).Build()
		if err := registry.Register(tag); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tag.LookupKey() != "id" {
			t.Errorf("LookupKey() = %s, want id", tag.LookupKey())
		}
	})
}

func TestDependencyOrder(t *testing.T) {
	registry := NewRegistry()
	for _, s := range []*ResourceSchema{newComment(), newPost(), newAuthor()} {
		_ = registry.Register(s)
	}

	order, err := registry.GetDependencyOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Author", "Post", "Comment"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("GetDependencyOrder() = %v, want %v", order, want)
	}
}

func TestDependencyOrderCycle(t *testing.T) {
	registry := NewRegistry()
	_ = registry.Register(Define("A").Field("id", TypeInt, Primary()).BelongsTo("b", "B").Build())
	_ = registry.Register(Define("B").Field("id", TypeInt, Primary()).BelongsTo("a", "A").Build())

	if _, err := registry.GetDependencyOrder(); err == nil {
		t.Error("expected circular dependency error")
	}
}

func TestToTableName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Post", "posts"},
		{"BlogPost", "blog_posts"},
		{"Category", "categories"},
		{"Address", "addresses"},
		{"Day", "days"},
		{"HTTPRequest", "http_requests"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToTableName(tt.name); got != tt.want {
				t.Errorf("ToTableName(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestCoerceKey(t *testing.T) {
	post := Define("Post").Field("id", TypeInt, Primary()).Build()
	token := Define("Token").Field("id", TypeUUID, Primary()).Build()
	slug := Define("Page").Field("slug", TypeString, Primary()).Build()

	tests := []struct {
		name     string
		resource *ResourceSchema
		id       string
		want     interface{}
		ok       bool
	}{
		{"int key", post, "42", int64(42), true},
		{"int key rejects text", post, "abc", nil, false},
		{"uuid key normalized", token, "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", true},
		{"uuid key rejects text", token, "nope", nil, false},
		{"string key passes through", slug, "hello-world", "hello-world", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.resource.CoerceKey(tt.id)
			if ok != tt.ok || !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CoerceKey(%q) = (%v, %v), want (%v, %v)", tt.id, got, ok, tt.want, tt.ok)
			}
		})
	}
}
