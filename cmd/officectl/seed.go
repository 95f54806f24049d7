package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/repository"
	"github.com/noah-isme/office-inventory-api/pkg/config"
	"github.com/noah-isme/office-inventory-api/pkg/database"
	"github.com/noah-isme/office-inventory-api/pkg/logger"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedData is the YAML document consumed by the seed command.
type SeedData struct {
	Roles      []SeedRole     `yaml:"roles"`
	Categories []SeedCategory `yaml:"categories"`
	Users      []SeedUser     `yaml:"users"`
}

type SeedRole struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type SeedCategory struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type SeedUser struct {
	Login      string `yaml:"login"`
	Password   string `yaml:"password"`
	LastName   string `yaml:"last_name"`
	FirstName  string `yaml:"first_name"`
	MiddleName string `yaml:"middle_name"`
	Position   string `yaml:"position"`
	Role       string `yaml:"role"`
}

type seedUserStore interface {
	EnsureRole(ctx context.Context, name models.RoleName, description string) (*models.Role, error)
	LoginExists(ctx context.Context, login string) (bool, error)
	Create(ctx context.Context, user *models.User) error
}

type seedCategoryStore interface {
	NameExists(ctx context.Context, name string, excludeID int64) (bool, error)
	Create(ctx context.Context, category *models.Category) error
}

// seedResult counts rows inserted by a run; existing rows are left untouched.
type seedResult struct {
	Roles      int
	Categories int
	Users      int
}

type seeder struct {
	users      seedUserStore
	categories seedCategoryStore
	hashCost   int
	logger     *zap.Logger
}

func parseSeed(r io.Reader) (*SeedData, error) {
	var data SeedData
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}
	for _, u := range data.Users {
		if strings.TrimSpace(u.Login) == "" || u.Password == "" {
			return nil, errors.New("seed users require login and password")
		}
	}
	return &data, nil
}

func (s *seeder) run(ctx context.Context, data *SeedData) (seedResult, error) {
	var res seedResult
	roles := make(map[models.RoleName]int64, len(data.Roles))
	for _, r := range data.Roles {
		role, err := s.users.EnsureRole(ctx, models.RoleName(r.Name), r.Description)
		if err != nil {
			return res, fmt.Errorf("ensure role %s: %w", r.Name, err)
		}
		roles[role.Name] = role.ID
		res.Roles++
	}

	for _, c := range data.Categories {
		exists, err := s.categories.NameExists(ctx, c.Name, 0)
		if err != nil {
			return res, fmt.Errorf("check category %s: %w", c.Name, err)
		}
		if exists {
			s.logger.Debug("category exists", zap.String("name", c.Name))
			continue
		}
		if err := s.categories.Create(ctx, &models.Category{Name: c.Name, Description: c.Description}); err != nil {
			return res, fmt.Errorf("create category %s: %w", c.Name, err)
		}
		res.Categories++
	}

	for _, u := range data.Users {
		exists, err := s.users.LoginExists(ctx, u.Login)
		if err != nil {
			return res, fmt.Errorf("check user %s: %w", u.Login, err)
		}
		if exists {
			s.logger.Debug("user exists", zap.String("login", u.Login))
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), s.hashCost)
		if err != nil {
			return res, fmt.Errorf("hash password for %s: %w", u.Login, err)
		}
		user := &models.User{
			Login:        u.Login,
			PasswordHash: string(hash),
			LastName:     u.LastName,
			FirstName:    u.FirstName,
			MiddleName:   u.MiddleName,
			Position:     u.Position,
		}
		if u.Role != "" {
			id, ok := roles[models.RoleName(u.Role)]
			if !ok {
				return res, fmt.Errorf("user %s references unknown role %s", u.Login, u.Role)
			}
			user.RoleID = &id
		}
		if err := s.users.Create(ctx, user); err != nil {
			return res, fmt.Errorf("create user %s: %w", u.Login, err)
		}
		res.Users++
	}
	return res, nil
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert default roles, categories and users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var src io.Reader = bytes.NewReader(defaultSeed)
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open seed file: %w", err)
				}
				defer f.Close()
				src = f
			}
			data, err := parseSeed(src)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			s := &seeder{
				users:      repository.NewUserRepository(db),
				categories: repository.NewCategoryRepository(db),
				hashCost:   bcrypt.DefaultCost,
				logger:     logr,
			}
			res, err := s.run(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d roles, %d categories, %d users\n", res.Roles, res.Categories, res.Users)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML file (defaults to the embedded data)")
	return cmd
}
