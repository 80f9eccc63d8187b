package store

import (
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// NotExistsCondition returns the condition expression guarding record creation.
// Use with NotExistsNames.
func NotExistsCondition() string {
	return "attribute_not_exists(#id)"
}

// NotExistsNames returns expression attribute names for NotExistsCondition.
func NotExistsNames() map[string]string {
	return map[string]string{"#id": AttrID}
}

// VersionCondition returns the condition expression for optimistic locking.
// It also fails when the record no longer exists. Use with VersionNames and
// VersionValues.
func VersionCondition() string {
	return "#version = :expected_version"
}

// VersionNames returns expression attribute names for VersionCondition.
func VersionNames() map[string]string {
	return map[string]string{"#version": AttrVersion}
}

// VersionValues returns expression attribute values for VersionCondition.
func VersionValues(expected int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		":expected_version": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
	}
}
