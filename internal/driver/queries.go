package driver

// Graph layout:
//
//	(:Vaccine {notation, label, is_abstract})-[:CONTAINS_VALENCE]->(:Valence {id})
//	(:Valence)-[:IS_A]->(:Valence)
//	(:Vaccine)-[:EXACT_MATCH]->(:Code {system, notation, label})
//	(:Ontology {id, version})
const (
	ListReferenceConceptsQuery = `
		MATCH (v:Vaccine)
		WHERE NOT $restrict_to_abstract OR v.is_abstract = true
		OPTIONAL MATCH (v)-[:CONTAINS_VALENCE]->(val:Valence)
		RETURN v.notation AS notation,
			v.label AS label,
			v.is_abstract AS is_abstract,
			collect(val.id) AS valences
		ORDER BY notation
	`

	ListDirectBindingsQuery = `
		MATCH (v:Vaccine)-[:EXACT_MATCH]->(c:Code {system: $system})
		WHERE v.is_abstract = false
		RETURN c.notation AS code, v.label AS label, v.notation AS concept
		ORDER BY code, concept
	`

	ListAbstractBindingsQuery = `
		MATCH (v:Vaccine)-[:EXACT_MATCH]->(c:Code {system: $system})
		WHERE v.is_abstract = true
		RETURN c.notation AS code, v.notation AS concept
		ORDER BY code, concept
	`

	ValenceParentsQuery = `
		MATCH (:Valence {id: $id})-[:IS_A]->(p:Valence)
		RETURN p.id AS id
		ORDER BY id
	`

	ListSystemsQuery = `
		MATCH (c:Code)
		RETURN DISTINCT c.system AS system
		ORDER BY system
	`

	GetVersionQuery = `
		MATCH (o:Ontology)
		RETURN o.version AS version
		LIMIT 1
	`

	SaveVersionQuery = `
		MERGE (o:Ontology {id: $id})
		SET o.version = $version
		RETURN o.id AS id
	`

	SaveValenceQuery = `
		MERGE (v:Valence {id: $id})
		RETURN v.id AS id
	`

	SaveIsAEdgeQuery = `
		MATCH (child:Valence {id: $child})
		MATCH (parent:Valence {id: $parent})
		MERGE (child)-[:IS_A]->(parent)
		RETURN child.id AS id
	`

	SaveVaccineQuery = `
		MERGE (v:Vaccine {notation: $notation})
		SET v.label = $label,
			v.is_abstract = $is_abstract
		RETURN v.notation AS notation
	`

	SaveContainsValenceQuery = `
		MATCH (v:Vaccine {notation: $notation})
		MATCH (val:Valence {id: $valence})
		MERGE (v)-[:CONTAINS_VALENCE]->(val)
		RETURN v.notation AS notation
	`

	SaveCodeQuery = `
		MERGE (c:Code {system: $system, notation: $notation})
		SET c.label = $label
		RETURN c.notation AS notation
	`

	SaveExactMatchQuery = `
		MATCH (v:Vaccine {notation: $concept})
		MATCH (c:Code {system: $system, notation: $notation})
		MERGE (v)-[:EXACT_MATCH]->(c)
		RETURN c.notation AS notation
	`
)

var IndexQueries = []string{
	"CREATE INDEX ON :Vaccine(notation);",
	"CREATE INDEX ON :Vaccine(is_abstract);",
	"CREATE INDEX ON :Valence(id);",
	"CREATE INDEX ON :Code(system);",
	"CREATE INDEX ON :Code(notation);",
}
