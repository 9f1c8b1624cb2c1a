package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// Bot manages the Discord bot lifecycle and module coordination.
type Bot struct {
	config   *Config
	session  *discordgo.Session
	botID    snowflake.ID
	modules  []Module
	handlers map[string]InteractionHandler

	readyOnce sync.Once
}

// NewBot creates a new Bot instance with the given configuration.
func NewBot(cfg *Config) *Bot {
	return &Bot{
		config:   cfg,
		modules:  make([]Module, 0),
		handlers: make(map[string]InteractionHandler),
	}
}

// LoadModules loads modules from the global registry.
func (b *Bot) LoadModules() {
	b.modules = Modules()
}

// Start initializes the bot, connects to Discord, and registers commands.
func (b *Bot) Start() error {
	session, err := discordgo.New("Bot " + b.config.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	b.session = session

	// The gateway only reports the bot user on Ready, modules need it earlier
	user, err := session.User("@me")
	if err != nil {
		return fmt.Errorf("failed to fetch bot user: %w", err)
	}
	if b.botID, err = snowflake.Parse(user.ID); err != nil {
		return fmt.Errorf("failed to parse bot ID: %w", err)
	}
	session.State.User = user

	if err := b.initModules(); err != nil {
		return fmt.Errorf("failed to initialize modules: %w", err)
	}

	b.buildHandlerMap()

	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(b.handleReady)
	b.registerEventHandlers()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	slog.Info("started bot",
		"user_id", user.ID,
		"username", user.Username,
	)

	return nil
}

// Stop shuts down the modules in reverse order and closes the session.
func (b *Bot) Stop(ctx context.Context) error {
	for i := len(b.modules) - 1; i >= 0; i-- {
		mod := b.modules[i]
		if err := mod.Shutdown(ctx); err != nil {
			slog.Warn("failed to shutdown module", "module", mod.Name(), "error", err)
		}
	}

	if b.session != nil {
		return b.session.Close()
	}

	return nil
}

// initModules loads the configuration of and initializes all loaded modules.
func (b *Bot) initModules() error {
	deps := ModuleDependencies{
		Session: b.session,
		BotID:   b.botID,
	}

	for _, mod := range b.modules {
		if configurable, ok := mod.(ConfigurableModule); ok {
			if err := configurable.LoadConfig(); err != nil {
				return fmt.Errorf("failed to load %s module config: %w", mod.Name(), err)
			}
		}
		if err := mod.Init(deps); err != nil {
			return fmt.Errorf("failed to initialize %s module: %w", mod.Name(), err)
		}
		slog.Debug("initialized module", "module", mod.Name())
	}

	moduleNames := make([]string, len(b.modules))
	for i, mod := range b.modules {
		moduleNames[i] = mod.Name()
	}
	slog.Info("initialized modules", "modules", moduleNames)

	return nil
}

// buildHandlerMap builds the command name to handler mapping.
func (b *Bot) buildHandlerMap() {
	for _, mod := range b.modules {
		maps.Copy(b.handlers, mod.CommandHandlers())
	}
}

// registerEventHandlers registers all module event handlers with the session.
func (b *Bot) registerEventHandlers() {
	for _, mod := range b.modules {
		for _, handler := range mod.EventHandlers() {
			b.session.AddHandler(handler)
		}
	}
}

// collectCommands gathers all commands from loaded modules.
func (b *Bot) collectCommands() []*discordgo.ApplicationCommand {
	var commands []*discordgo.ApplicationCommand
	for _, mod := range b.modules {
		commands = append(commands, mod.Commands()...)
	}
	return commands
}

// registerCommands replaces the registered commands with the modules' commands,
// dropping any that no module provides anymore.
func (b *Bot) registerCommands() error {
	commands := b.collectCommands()

	registered, err := b.session.ApplicationCommandBulkOverwrite(
		b.botID.String(),
		b.config.CommandGuildID,
		commands,
	)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	scope := "global"
	if b.config.CommandGuildID != "" {
		scope = "guild"
	}
	slog.Info("registered commands", "count", len(registered), "scope", scope)

	return nil
}

// runReadyModules calls OnReady of every ReadyModule, continuing past failures.
func (b *Bot) runReadyModules(ctx context.Context) error {
	var errs []error
	for _, mod := range b.modules {
		ready, ok := mod.(ReadyModule)
		if !ok {
			continue
		}
		if err := ready.OnReady(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", mod.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) handleReady(_ *discordgo.Session, _ *discordgo.Ready) {
	// Ready repeats after every reconnect
	b.readyOnce.Do(func() {
		if err := b.runReadyModules(context.Background()); err != nil {
			slog.Error("failed to run ready hooks", "error", err)
		}
	})
}

// Embed colors for responses.
const (
	colorYellow = 0xFFFF00
	colorRed    = 0xFF0000
)

// handleInteraction routes incoming interactions to the appropriate handler.
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	cmdName := i.ApplicationCommandData().Name
	handler, ok := b.handlers[cmdName]
	if !ok {
		slog.Warn("found no handler for command", "command", cmdName)
		b.respondWithEmbed(s, i, "Unknown Command", "This command is not recognized.", colorYellow)
		return
	}

	if err := b.runHandler(handler, s, i); err != nil {
		slog.Error("failed to handle command", "command", cmdName, "error", err)
		b.respondWithEmbed(s, i, "Error", "An error occurred while processing your command.",
			colorRed)
	}
}

// runHandler runs a command handler, turning a panic into an error so that a
// single broken command cannot take the process and its players down.
func (b *Bot) runHandler(
	handler InteractionHandler,
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered from panic in command handler", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("command handler panicked: %v", r)
		}
	}()

	return handler(s, i, NewDiscordResponder(s, i.Interaction))
}

// respondWithEmbed sends an embed response to an interaction.
func (b *Bot) respondWithEmbed(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	title, description string,
	color int,
) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       title,
					Description: description,
					Color:       color,
				},
			},
		},
	})
	if err != nil {
		slog.Error("failed to send embed response", "error", err)
	}
}
