package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/reforest-backend/internal/data/aggregates"
	"github.com/yungbote/reforest-backend/internal/data/repos"
	types "github.com/yungbote/reforest-backend/internal/domain"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/domain/user"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

const (
	prefixUser    = "usr_"
	prefixProject = "prj_"
	prefixSite    = "site_"
	prefixSpecies = "ssp_"
)

type SeedUser struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type SeedMember struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type SeedSite struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

type SeedProject struct {
	UID        string       `json:"uid"`
	Name       string       `json:"name"`
	OwnerEmail string       `json:"owner_email"`
	Sites      []SeedSite   `json:"sites"`
	Members    []SeedMember `json:"members"`
}

type SeedSpecies struct {
	UID            string `json:"uid"`
	ScientificName string `json:"scientific_name"`
	CommonName     string `json:"common_name"`
}

// SeedInput describes reference data the intervention writes depend on.
// Members and owners are matched by email against Users.
type SeedInput struct {
	Users    []SeedUser    `json:"users"`
	Projects []SeedProject `json:"projects"`
	Species  []SeedSpecies `json:"species"`
}

type SeedResult struct {
	Users    []*types.User              `json:"users"`
	Projects []*types.Project           `json:"projects"`
	Sites    []*types.Site              `json:"sites"`
	Members  []*types.ProjectMember     `json:"members"`
	Species  []*types.ScientificSpecies `json:"species"`
}

// DirectoryService maintains users, projects, sites, memberships and the
// species catalog.
type DirectoryService interface {
	// Seed writes everything in one transaction; any failure leaves nothing behind.
	Seed(ctx context.Context, in SeedInput) (SeedResult, error)
	ListMembers(ctx context.Context, projectID int64) ([]*types.ProjectMember, error)
	SetMemberRole(ctx context.Context, projectID, userID int64, role string) (*types.ProjectMember, error)
}

type DirectoryRepos struct {
	Users    repos.UserRepo
	Members  repos.ProjectMemberRepo
	Projects repos.ProjectRepo
	Sites    repos.SiteRepo
	Species  repos.ScientificSpeciesRepo
}

type directoryService struct {
	log    *logger.Logger
	runner aggregates.TxRunner
	ids    aggregates.IDGenerator
	repos  DirectoryRepos
}

func NewDirectoryService(log *logger.Logger, runner aggregates.TxRunner, ids aggregates.IDGenerator, r DirectoryRepos) DirectoryService {
	return &directoryService{
		log:    log.With("service", "DirectoryService"),
		runner: runner,
		ids:    ids,
		repos:  r,
	}
}

func (s *directoryService) Seed(ctx context.Context, in SeedInput) (SeedResult, error) {
	const op = "Directory.Seed"
	var out SeedResult
	if err := validateSeed(op, in); err != nil {
		return out, err
	}

	err := s.runner.InTx(ctx, func(dbc dbctx.Context) error {
		out = SeedResult{}
		byEmail := map[string]*types.User{}
		users := make([]*types.User, 0, len(in.Users))
		for _, u := range in.Users {
			row := &types.User{
				UID:         s.ids.UID(prefixUser),
				Email:       normalizeEmail(u.Email),
				DisplayName: strings.TrimSpace(u.DisplayName),
				IsActive:    true,
			}
			users = append(users, row)
			byEmail[row.Email] = row
		}
		created, err := s.repos.Users.Create(dbc, users)
		if err != nil {
			return err
		}
		out.Users = created

		for _, p := range in.Projects {
			owner := byEmail[normalizeEmail(p.OwnerEmail)]
			project := &types.Project{
				UID:       orNewUID(p.UID, s.ids, prefixProject),
				Name:      strings.TrimSpace(p.Name),
				CreatedBy: owner.ID,
			}
			if _, err := s.repos.Projects.Create(dbc, []*types.Project{project}); err != nil {
				return fmt.Errorf("project %q: %w", project.Name, err)
			}
			out.Projects = append(out.Projects, project)

			members := []*types.ProjectMember{{ProjectID: project.ID, UserID: owner.ID, ProjectRole: user.RoleOwner}}
			for _, m := range p.Members {
				members = append(members, &types.ProjectMember{
					ProjectID:   project.ID,
					UserID:      byEmail[normalizeEmail(m.Email)].ID,
					ProjectRole: strings.ToLower(strings.TrimSpace(m.Role)),
				})
			}
			for _, m := range members {
				if err := s.repos.Members.Upsert(dbc, m); err != nil {
					return fmt.Errorf("project %q member %d: %w", project.Name, m.UserID, err)
				}
			}
			out.Members = append(out.Members, members...)

			sites := make([]*types.Site, 0, len(p.Sites))
			for _, site := range p.Sites {
				sites = append(sites, &types.Site{
					UID:       orNewUID(site.UID, s.ids, prefixSite),
					ProjectID: project.ID,
					Name:      strings.TrimSpace(site.Name),
				})
			}
			created, err := s.repos.Sites.Create(dbc, sites)
			if err != nil {
				return fmt.Errorf("project %q sites: %w", project.Name, err)
			}
			out.Sites = append(out.Sites, created...)
		}

		species := make([]*types.ScientificSpecies, 0, len(in.Species))
		for _, sp := range in.Species {
			species = append(species, &types.ScientificSpecies{
				UID:            orNewUID(sp.UID, s.ids, prefixSpecies),
				ScientificName: strings.TrimSpace(sp.ScientificName),
				CommonName:     strings.TrimSpace(sp.CommonName),
			})
		}
		createdSpecies, err := s.repos.Species.Create(dbc, species)
		if err != nil {
			return fmt.Errorf("species: %w", err)
		}
		out.Species = createdSpecies
		return nil
	})
	if err != nil {
		return SeedResult{}, aggregates.MapError(op, err)
	}
	s.log.Info("Seeded directory",
		"users", len(out.Users),
		"projects", len(out.Projects),
		"sites", len(out.Sites),
		"species", len(out.Species),
	)
	return out, nil
}

// validateSeed checks every cross reference before anything is written.
func validateSeed(op string, in SeedInput) error {
	emails := map[string]bool{}
	for i, u := range in.Users {
		email := normalizeEmail(u.Email)
		if email == "" || !strings.Contains(email, "@") {
			return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("users[%d]: invalid email %q", i, u.Email), nil)
		}
		if emails[email] {
			return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("users[%d]: duplicate email %q", i, email), nil)
		}
		emails[email] = true
	}
	for i, p := range in.Projects {
		if strings.TrimSpace(p.Name) == "" {
			return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("projects[%d]: name is required", i), nil)
		}
		if !emails[normalizeEmail(p.OwnerEmail)] {
			return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("projects[%d]: owner %q is not among users", i, p.OwnerEmail), nil)
		}
		for j, m := range p.Members {
			if !emails[normalizeEmail(m.Email)] {
				return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("projects[%d].members[%d]: %q is not among users", i, j, m.Email), nil)
			}
			if !user.KnownRole(m.Role) {
				return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("projects[%d].members[%d]: unknown role %q", i, j, m.Role), nil)
			}
		}
		for j, site := range p.Sites {
			if strings.TrimSpace(site.Name) == "" {
				return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("projects[%d].sites[%d]: name is required", i, j), nil)
			}
		}
	}
	for i, sp := range in.Species {
		if strings.TrimSpace(sp.ScientificName) == "" {
			return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("species[%d]: scientific_name is required", i), nil)
		}
	}
	return nil
}

func (s *directoryService) ListMembers(ctx context.Context, projectID int64) ([]*types.ProjectMember, error) {
	const op = "Directory.ListMembers"
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.requireProject(dbc, op, projectID); err != nil {
		return nil, err
	}
	members, err := s.repos.Members.ListByProject(dbc, projectID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return members, nil
}

// SetMemberRole adds the user to the project or changes their role. Only
// active users can be granted a role.
func (s *directoryService) SetMemberRole(ctx context.Context, projectID, userID int64, role string) (*types.ProjectMember, error) {
	const op = "Directory.SetMemberRole"
	role = strings.ToLower(strings.TrimSpace(role))
	if !user.KnownRole(role) {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown role %q", role), nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.requireProject(dbc, op, projectID); err != nil {
		return nil, err
	}
	u, err := s.repos.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if u == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("user %d not found", userID), nil)
	}
	if !u.IsActive {
		return nil, domainagg.NewReasonError(domainagg.CodePreconditionFailed, op, domainagg.ReasonInactiveUser, fmt.Sprintf("user %d is inactive", userID), nil)
	}
	m := &types.ProjectMember{ProjectID: projectID, UserID: userID, ProjectRole: role}
	if err := s.repos.Members.Upsert(dbc, m); err != nil {
		return nil, aggregates.MapError(op, err)
	}
	s.log.Info("Project role set", "project_id", projectID, "user_id", userID, "role", role)
	return m, nil
}

func (s *directoryService) requireProject(dbc dbctx.Context, op string, projectID int64) error {
	p, err := s.repos.Projects.GetByID(dbc, projectID)
	if err != nil {
		return aggregates.MapError(op, err)
	}
	if p == nil {
		return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("project %d not found", projectID), nil)
	}
	return nil
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func orNewUID(uid string, ids aggregates.IDGenerator, prefix string) string {
	if uid = strings.TrimSpace(uid); uid != "" {
		return uid
	}
	return ids.UID(prefix)
}
