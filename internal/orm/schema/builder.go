package schema

// Builder assembles a ResourceSchema in code
//
//	post := schema.Define("Post").
//		Field("id", schema.TypeUUID, schema.Primary(), schema.Auto()).
//		Field("title", schema.TypeString).
//		BelongsTo("author", "Author").
//		Build()
type Builder struct {
	schema *ResourceSchema
}

// FieldOption customizes a field added through the Builder
type FieldOption func(*Field)

// Define starts a builder for the named model
func Define(name string) *Builder {
	return &Builder{schema: NewResourceSchema(name)}
}

// Primary marks the field as part of the primary key
func Primary() FieldOption {
	return func(f *Field) { f.Annotations = append(f.Annotations, Annotation{Name: "primary"}) }
}

// Auto marks the field as generated on insert
func Auto() FieldOption {
	return func(f *Field) { f.Annotations = append(f.Annotations, Annotation{Name: "auto"}) }
}

// Unique marks the field as unique
func Unique() FieldOption {
	return func(f *Field) { f.Annotations = append(f.Annotations, Annotation{Name: "unique"}) }
}

// Nullable allows NULL values in the field
func Nullable() FieldOption {
	return func(f *Field) { f.Type.Nullable = true }
}

// Table overrides the conventional table name
func (b *Builder) Table(name string) *Builder {
	b.schema.TableName = name
	return b
}

// Field adds a field
func (b *Builder) Field(name string, typ PrimitiveType, opts ...FieldOption) *Builder {
	field := &Field{Name: name, Type: &TypeSpec{BaseType: typ}}
	for _, opt := range opts {
		opt(field)
	}
	b.schema.AddField(field)
	return b
}

// BelongsTo adds a belongs_to association stored in <alias>_id unless a key is given
func (b *Builder) BelongsTo(alias, target string, foreignKey ...string) *Builder {
	return b.relate(RelationshipBelongsTo, alias, target, foreignKey)
}

// HasMany adds a has_many association
func (b *Builder) HasMany(alias, target string, foreignKey ...string) *Builder {
	return b.relate(RelationshipHasMany, alias, target, foreignKey)
}

// HasOne adds a has_one association
func (b *Builder) HasOne(alias, target string, foreignKey ...string) *Builder {
	return b.relate(RelationshipHasOne, alias, target, foreignKey)
}

func (b *Builder) relate(typ RelationType, alias, target string, foreignKey []string) *Builder {
	rel := &Relationship{Type: typ, TargetResource: target, FieldName: alias}
	if len(foreignKey) > 0 {
		rel.ForeignKey = foreignKey[0]
	}
	b.schema.AddRelationship(rel)
	return b
}

// Build returns the assembled schema
func (b *Builder) Build() *ResourceSchema {
	return b.schema
}
