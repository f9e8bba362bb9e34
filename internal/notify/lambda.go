package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaNotifier hands turn changes to a push-delivery function. The
// invocation is asynchronous; delivery failures surface in the function's
// own logs, not here.
type LambdaNotifier struct {
	client   LambdaAPI
	function string
	now      func() time.Time
}

func NewLambdaNotifier(client LambdaAPI, function string) *LambdaNotifier {
	return &LambdaNotifier{client: client, function: function, now: time.Now}
}

func (n *LambdaNotifier) NotifyTurnChanged(ctx context.Context, matchID string, playerID string) error {
	payload, err := json.Marshal(newTurnNotification(matchID, playerID, n.now()))
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	out, err := n.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(n.function),
		InvocationType: types.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("failed to invoke %s: %w", n.function, err)
	}
	if out.FunctionError != nil {
		return fmt.Errorf("push function %s failed: %s", n.function, aws.ToString(out.FunctionError))
	}
	return nil
}
