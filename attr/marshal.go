package attr

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// Marshal converts a Go struct or map into a Document using the AWS SDK's
// attributevalue rules (`dynamodbav` struct tags, omitempty, string sets via
// `dynamodbav:",stringset"` and so on).
func Marshal(in any) (Document, error) {
	item, err := attributevalue.MarshalMap(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", in, err)
	}

	return DeitemizeItem(item)
}

// Unmarshal decodes doc into out, which must be a non-nil pointer, using the
// AWS SDK's attributevalue rules.
func Unmarshal(doc Document, out any) error {
	item, err := ItemizeDocument(doc)
	if err != nil {
		return err
	}

	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return fmt.Errorf("failed to unmarshal into %T: %w", out, err)
	}

	return nil
}
