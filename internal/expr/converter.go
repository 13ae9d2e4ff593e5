package expr

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ConvertToAttributeValue converts a filter operand to an AttributeValue.
// Only the scalar kinds a filter can carry are accepted.
func ConvertToAttributeValue(value any) (types.AttributeValue, error) {
	switch v := value.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: v}, nil
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(v)}, nil
	case int32:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(int64(v), 10)}, nil
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}, nil
	case uint64:
		return &types.AttributeValueMemberN{Value: strconv.FormatUint(v, 10)}, nil
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(v, 'g', -1, 64)}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: v}, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", value)
	}
}

// ItemToBins converts a DynamoDB item into bin values. Numbers become
// int64 when integral and float64 otherwise.
func ItemToBins(item map[string]types.AttributeValue) (map[string]any, error) {
	return attributeValueMapToInterface(item)
}

// AttributeValueToInterface converts an AttributeValue to a native Go type
func AttributeValueToInterface(av types.AttributeValue) (any, error) {
	switch av := av.(type) {
	case *types.AttributeValueMemberS:
		return av.Value, nil

	case *types.AttributeValueMemberN:
		return parseNumberString(av.Value)

	case *types.AttributeValueMemberB:
		return av.Value, nil

	case *types.AttributeValueMemberBOOL:
		return av.Value, nil

	case *types.AttributeValueMemberNULL:
		return nil, nil

	case *types.AttributeValueMemberL:
		return attributeValueListToInterface(av.Value)

	case *types.AttributeValueMemberM:
		return attributeValueMapToInterface(av.Value)

	case *types.AttributeValueMemberSS:
		return av.Value, nil

	case *types.AttributeValueMemberNS:
		return attributeValueNumberSetToInterface(av.Value)

	case *types.AttributeValueMemberBS:
		return av.Value, nil

	default:
		return nil, fmt.Errorf("unknown AttributeValue type: %T", av)
	}
}

func parseNumberString(value string) (any, error) {
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("cannot parse number: %s", value)
}

func attributeValueListToInterface(list []types.AttributeValue) ([]any, error) {
	result := make([]any, len(list))
	for i, item := range list {
		val, err := AttributeValueToInterface(item)
		if err != nil {
			return nil, fmt.Errorf("failed to convert list item %d: %w", i, err)
		}
		result[i] = val
	}
	return result, nil
}

func attributeValueMapToInterface(m map[string]types.AttributeValue) (map[string]any, error) {
	result := make(map[string]any, len(m))
	for k, v := range m {
		val, err := AttributeValueToInterface(v)
		if err != nil {
			return nil, fmt.Errorf("failed to convert map value for key %s: %w", k, err)
		}
		result[k] = val
	}
	return result, nil
}

func attributeValueNumberSetToInterface(values []string) ([]any, error) {
	nums := make([]any, len(values))
	for i, value := range values {
		num, err := parseNumberString(value)
		if err != nil {
			return nil, fmt.Errorf("cannot parse number in set: %s", value)
		}
		nums[i] = num
	}
	return nums, nil
}
