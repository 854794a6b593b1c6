package recipient

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	common_models "go-qms/internal/common/models"
	"go-qms/pkg/condition"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"go.uber.org/zap"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// UserDirectory is the slice of the user repository the resolver needs.
type UserDirectory interface {
	FindByRole(ctx context.Context, role string) ([]common_models.User, error)
	FindByDepartment(ctx context.Context, department string, managersOnly bool) ([]common_models.User, error)
	FindByGroup(ctx context.Context, group string) ([]common_models.User, error)
}

type ResolverService interface {
	// Resolve expands symbolic recipient specs into concrete addresses.
	// Unresolved or failing specs are logged and skipped; the result is
	// ordered and deduplicated.
	Resolve(ctx context.Context, specs []string, ectx *condition.Context) []string

	CreateList(ctx context.Context, list *DistributionList) error
	ListLists(ctx context.Context) ([]DistributionList, error)
	UpdateList(ctx context.Context, id string, list *DistributionList) error
	DeleteList(ctx context.Context, id string) error

	CreateScript(ctx context.Context, script *RecipientScript) error
	ListScripts(ctx context.Context) ([]RecipientScript, error)
	UpdateScript(ctx context.Context, id string, script *RecipientScript) error
	DeleteScript(ctx context.Context, id string) error
}

type ResolverServiceImpl struct {
	Users      UserDirectory
	ListRepo   ListRepository
	ScriptRepo ScriptRepository
	Logger     *zap.Logger
}

func NewResolverService(users UserDirectory, listRepo ListRepository, scriptRepo ScriptRepository, logger *zap.Logger) ResolverService {
	return &ResolverServiceImpl{
		Users:      users,
		ListRepo:   listRepo,
		ScriptRepo: scriptRepo,
		Logger:     logger,
	}
}

func (s *ResolverServiceImpl) Resolve(ctx context.Context, specs []string, ectx *condition.Context) []string {
	resolved := make([]string, 0, len(specs))
	seen := make(map[string]bool)

	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		resolved = append(resolved, addr)
	}

	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}

		if emailPattern.MatchString(spec) {
			add(spec)
			continue
		}

		addrs, err := s.resolveSpec(ctx, spec, ectx)
		if err != nil {
			s.logSkip(spec, err)
			continue
		}
		if len(addrs) == 0 {
			s.logSkip(spec, fmt.Errorf("no recipients matched"))
			continue
		}
		for _, a := range addrs {
			add(a)
		}
	}

	return resolved
}

func (s *ResolverServiceImpl) resolveSpec(ctx context.Context, spec string, ectx *condition.Context) ([]string, error) {
	prefix, arg, found := strings.Cut(spec, ":")
	if !found {
		return nil, fmt.Errorf("unrecognized recipient spec")
	}

	switch prefix {
	case "role":
		users, err := s.Users.FindByRole(ctx, arg)
		if err != nil {
			return nil, err
		}
		return emailsOf(users), nil
	case "dept":
		// "dept:<name>" or "dept:<name>:manager"
		dept, modifier, _ := strings.Cut(arg, ":")
		users, err := s.Users.FindByDepartment(ctx, dept, modifier == "manager")
		if err != nil {
			return nil, err
		}
		return emailsOf(users), nil
	case "group":
		users, err := s.Users.FindByGroup(ctx, arg)
		if err != nil {
			return nil, err
		}
		return emailsOf(users), nil
	case "list":
		list, err := s.ListRepo.FindByName(ctx, arg)
		if err != nil {
			return nil, err
		}
		return list.Addresses, nil
	case "dynamic":
		return s.runScript(ctx, arg, ectx)
	case "escalation":
		return s.resolveEscalationLevel(ctx, arg)
	default:
		return nil, fmt.Errorf("unknown spec prefix %q", prefix)
	}
}

// resolveEscalationLevel maps the static escalation ladder: quality
// managers, then department heads, then site directors.
func (s *ResolverServiceImpl) resolveEscalationLevel(ctx context.Context, arg string) ([]string, error) {
	level, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid escalation level %q", arg)
	}

	switch level {
	case 1:
		users, err := s.Users.FindByRole(ctx, "quality_manager")
		if err != nil {
			return nil, err
		}
		return emailsOf(users), nil
	case 2:
		users, err := s.Users.FindByDepartment(ctx, "", true)
		if err != nil {
			return nil, err
		}
		return emailsOf(users), nil
	case 3:
		users, err := s.Users.FindByRole(ctx, "site_director")
		if err != nil {
			return nil, err
		}
		return emailsOf(users), nil
	default:
		return nil, fmt.Errorf("escalation level %d out of range", level)
	}
}

func (s *ResolverServiceImpl) runScript(ctx context.Context, name string, ectx *condition.Context) ([]string, error) {
	stored, err := s.ScriptRepo.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("script %q not found: %w", name, err)
	}

	script := tengo.NewScript([]byte(stored.Script))
	script.SetImports(stdlib.GetModuleMap("text", "math", "times"))

	if ectx == nil {
		ectx = condition.NewContext()
	}
	for scope, values := range ectx.Scopes() {
		if err := script.Add(scope, values); err != nil {
			return nil, err
		}
	}

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("script %q failed: %w", name, err)
	}

	out := compiled.Get("recipients")
	if out == nil {
		return nil, fmt.Errorf("script %q did not set recipients", name)
	}

	var addrs []string
	for _, v := range out.Array() {
		if addr, ok := v.(string); ok && emailPattern.MatchString(addr) {
			addrs = append(addrs, addr)
		}
	}
	return addrs, nil
}

func (s *ResolverServiceImpl) logSkip(spec string, err error) {
	if s.Logger != nil {
		s.Logger.Warn("skipping unresolved recipient spec",
			zap.String("spec", spec),
			zap.Error(err),
		)
	}
}

func emailsOf(users []common_models.User) []string {
	addrs := make([]string, 0, len(users))
	for _, u := range users {
		if u.Email != "" {
			addrs = append(addrs, u.Email)
		}
	}
	return addrs
}

func (s *ResolverServiceImpl) CreateList(ctx context.Context, list *DistributionList) error {
	return s.ListRepo.Create(ctx, list)
}

func (s *ResolverServiceImpl) ListLists(ctx context.Context) ([]DistributionList, error) {
	return s.ListRepo.List(ctx)
}

func (s *ResolverServiceImpl) UpdateList(ctx context.Context, id string, list *DistributionList) error {
	return s.ListRepo.Update(ctx, id, list)
}

func (s *ResolverServiceImpl) DeleteList(ctx context.Context, id string) error {
	return s.ListRepo.Delete(ctx, id)
}

func (s *ResolverServiceImpl) CreateScript(ctx context.Context, script *RecipientScript) error {
	// Reject scripts that do not compile rather than failing at send time.
	if _, err := tengo.NewScript([]byte(script.Script)).Compile(); err != nil {
		return fmt.Errorf("invalid script: %w", err)
	}
	return s.ScriptRepo.Create(ctx, script)
}

func (s *ResolverServiceImpl) ListScripts(ctx context.Context) ([]RecipientScript, error) {
	return s.ScriptRepo.List(ctx)
}

func (s *ResolverServiceImpl) UpdateScript(ctx context.Context, id string, script *RecipientScript) error {
	if _, err := tengo.NewScript([]byte(script.Script)).Compile(); err != nil {
		return fmt.Errorf("invalid script: %w", err)
	}
	return s.ScriptRepo.Update(ctx, id, script)
}

func (s *ResolverServiceImpl) DeleteScript(ctx context.Context, id string) error {
	return s.ScriptRepo.Delete(ctx, id)
}
