// Seeding tool for local development: creates a login and fills its task or
// delivery lists with generated data.
//
//	seed user --email ada@example.com --role fulfiller
//	seed deliveries --email ada@example.com --count 30
//
// Reads DATABASE_URL and the MOCK_* settings via taskhub/pkg/config.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/catalog"
	"taskhub/internal/delivery"
	"taskhub/internal/domain"
	"taskhub/internal/mockdata"
	"taskhub/internal/repository/postgres"
	"taskhub/internal/task"
	"taskhub/pkg/config"
	"taskhub/pkg/logger"
)

var (
	seedEmail string
	seedCount int
)

var rootCmd = &cobra.Command{
	Use:           "seed",
	Short:         "Seed the TaskHub database with development data",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Create a verified user, or reset the password of an existing one",
	RunE:  runUser,
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Replace a creator's tasks with a generated set",
	RunE:  runTasks,
}

var deliveriesCmd = &cobra.Command{
	Use:   "deliveries",
	Short: "Replace a fulfiller's deliveries with a generated set",
	RunE:  runDeliveries,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&seedEmail, "email", "john.doe@example.com", "email of the user to seed")

	userCmd.Flags().String("password", "Password123", "login password")
	userCmd.Flags().String("first", "John", "first name")
	userCmd.Flags().String("last", "Doe", "last name")
	userCmd.Flags().String("role", string(domain.RoleFulfiller), "creator or fulfiller")

	tasksCmd.Flags().IntVar(&seedCount, "count", 0, "number of tasks (default MOCK_TASK_COUNT)")
	deliveriesCmd.Flags().IntVar(&seedCount, "count", 0, "number of deliveries (default MOCK_DELIVERY_COUNT)")

	rootCmd.AddCommand(userCmd, tasksCmd, deliveriesCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// env bundles what every subcommand needs.
type env struct {
	cfg   *config.Config
	log   logger.Logger
	db    *sqlx.DB
	users *postgres.UserRepository
}

func setup() (*env, error) {
	cfg := config.Load()
	if err := cfg.ValidateCore(); err != nil {
		return nil, err
	}
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &env{
		cfg:   cfg,
		log:   logger.New("seed"),
		db:    db,
		users: postgres.NewUserRepository(db),
	}, nil
}

func (e *env) generator() (*mockdata.Generator, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}
	var opts []mockdata.Option
	if e.cfg.Mock.Seed != 0 {
		opts = append(opts, mockdata.WithSeed(e.cfg.Mock.Seed))
	}
	return mockdata.New(cat, opts...), nil
}

func (e *env) user(ctx context.Context) (*domain.User, error) {
	u, err := e.users.FindByEmail(ctx, strings.ToLower(seedEmail))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w (run `seed user` first)", seedEmail, err)
	}
	return u, nil
}

func runUser(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.db.Close()

	password, _ := cmd.Flags().GetString("password")
	first, _ := cmd.Flags().GetString("first")
	last, _ := cmd.Flags().GetString("last")
	roleFlag, _ := cmd.Flags().GetString("role")
	role := domain.Role(roleFlag)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", roleFlag)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ctx := cmd.Context()
	email := strings.ToLower(seedEmail)
	now := time.Now()

	exists, err := e.users.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !exists {
		u := &domain.User{
			ID:            uuid.New(),
			Email:         email,
			PasswordHash:  string(hash),
			FirstName:     first,
			LastName:      last,
			Role:          role,
			EmailVerified: true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := e.users.Create(ctx, u); err != nil {
			return err
		}
		e.log.Info("User created", map[string]interface{}{"email": email, "role": string(role)})
		return nil
	}

	u, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.Role = role
	u.EmailVerified = true
	u.UpdatedAt = now
	if err := e.users.Update(ctx, u); err != nil {
		return err
	}
	e.log.Info("User password updated", map[string]interface{}{"email": email})
	return nil
}

func runTasks(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.db.Close()

	gen, err := e.generator()
	if err != nil {
		return err
	}
	count := seedCount
	if count <= 0 {
		count = e.cfg.Mock.TaskCount
	}

	ctx := cmd.Context()
	u, err := e.user(ctx)
	if err != nil {
		return err
	}
	svc := task.NewService(postgres.NewTaskRepository(e.db), e.users, gen, count, e.log)
	tasks, err := svc.Refresh(ctx, u.ID)
	if err != nil {
		return err
	}
	fmt.Printf("OK: %d tasks seeded for %s\n", len(tasks), u.Email)
	return nil
}

func runDeliveries(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.db.Close()

	gen, err := e.generator()
	if err != nil {
		return err
	}
	count := seedCount
	if count <= 0 {
		count = e.cfg.Mock.DeliveryCount
	}

	ctx := cmd.Context()
	u, err := e.user(ctx)
	if err != nil {
		return err
	}
	// No notifier: the notification feed lives outside Postgres.
	svc := delivery.NewService(postgres.NewDeliveryRepository(e.db), e.users, nil, gen, count, e.log)
	list, err := svc.Refresh(ctx, u.ID)
	if err != nil {
		return err
	}
	fmt.Printf("OK: %d deliveries seeded for %s\n", len(list), u.Email)
	return nil
}
