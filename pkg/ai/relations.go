package ai

import (
	"strings"

	"github.com/OFFIS-RIT/findet/pkg/common"
)

var relationAliases = map[string]common.RelationType{
	"SUBSIDIARY":    common.RelationOwns,
	"SUBSIDIARY_OF": common.RelationOwns,
	"PART_OF":       common.RelationOwns,
	"PART_OF_GROUP": common.RelationOwns,
	"BELONGS_TO":    common.RelationOwns,
	"JOINT_VENTURE": common.RelationJointVentureWith,
	"JV":            common.RelationJointVentureWith,
	"PARTNER":       common.RelationPartneredWith,
	"FACES_RISK":    common.RelationHasRisk,
	"REPORTED":      common.RelationReportsAmount,
	"REVENUE":       common.RelationReportsAmount,
}

var knownRelations = func() map[common.RelationType]struct{} {
	m := make(map[common.RelationType]struct{}, len(common.RelationTypes))
	for _, r := range common.RelationTypes {
		m[r] = struct{}{}
	}
	return m
}()

// NormalizeRelation maps a relation label produced by a model onto the
// relation set. Labels are upper-cased and spaces become underscores before
// matching; common aliases such as SUBSIDIARY or JV are translated. The
// second return value is false for labels that cannot be mapped.
func NormalizeRelation(raw string) (common.RelationType, bool) {
	label := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(raw)), " ", "_")
	if _, ok := knownRelations[common.RelationType(label)]; ok {
		return common.RelationType(label), true
	}
	if mapped, ok := relationAliases[label]; ok {
		return mapped, true
	}
	return "", false
}
