package security

import (
	"context"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/redis/go-redis/v9"
	"github.com/uno-framework/uno/vars"
)

// RecoveryCodes holds the single-use MFA fallback codes handed out at
// enrollment. With redis a redemption is visible to every node at once;
// without it the codes live in process memory.
type RecoveryCodes struct {
	Rds   *redis.Client
	local cmap.ConcurrentMap[string, []string]
}

func NewRecoveryCodes(rds *redis.Client) *RecoveryCodes {
	return &RecoveryCodes{Rds: rds, local: cmap.New[[]string]()}
}

func recoveryKey(account string) string { return "unorecovery:" + account }

// Store replaces the account's code set; re-enrolling voids older codes.
func (rc *RecoveryCodes) Store(ctx context.Context, account string, codes []string) error {
	if rc.Rds == nil {
		rc.local.Set(account, append([]string{}, codes...))
		return nil
	}
	key := recoveryKey(account)
	members := make([]interface{}, len(codes))
	for i, code := range codes {
		members[i] = code
	}
	pipe := rc.Rds.TxPipeline()
	pipe.Del(ctx, key)
	if len(members) > 0 {
		pipe.SAdd(ctx, key, members...)
	}
	_, err := pipe.Exec(ctx)
	return vars.Wrap(vars.CodeSecurity, "recoveryStore", err)
}

// Redeem consumes one code. A code redeems exactly once; anything else,
// including a code already spent, is rejected.
func (rc *RecoveryCodes) Redeem(ctx context.Context, account, code string) error {
	if code == "" {
		return vars.Wrap(vars.CodeSecurity, "recoveryRedeem", vars.ErrRecoveryRejected)
	}
	if rc.Rds == nil {
		consumed := false
		rc.local.Upsert(account, nil, func(exist bool, current, _ []string) []string {
			kept := make([]string, 0, len(current))
			for _, c := range current {
				if c == code && !consumed {
					consumed = true
					continue
				}
				kept = append(kept, c)
			}
			return kept
		})
		if !consumed {
			return vars.Wrap(vars.CodeSecurity, "recoveryRedeem", vars.ErrRecoveryRejected)
		}
		return nil
	}
	n, err := rc.Rds.SRem(ctx, recoveryKey(account), code).Result()
	if err != nil {
		return vars.Wrap(vars.CodeSecurity, "recoveryRedeem", err)
	}
	if n == 0 {
		return vars.Wrap(vars.CodeSecurity, "recoveryRedeem", vars.ErrRecoveryRejected)
	}
	return nil
}
