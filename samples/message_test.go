package samples

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hupe1980/dialogmesh/adapter"
	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/dialog"
	"github.com/hupe1980/dialogmesh/lg"
	"github.com/hupe1980/dialogmesh/resource"
	"github.com/hupe1980/dialogmesh/state"
	"github.com/hupe1980/dialogmesh/storage"
)

// explorer is shared by every test in the package.
var explorer *resource.Explorer

func TestMain(m *testing.M) {
	explorer = resource.NewExplorer()
	if err := explorer.AddFolder(RespondingWithText, true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	goleak.VerifyTestMain(m)
}

const menu = "What type of message would you like to send?\n\n" +
	"   1. Simple Text\n" +
	"   2. Text With Memory\n" +
	"   3. Text With LG\n" +
	"   4. LGWithParam\n" +
	"   5. LGComposition\n" +
	"   6. Structured LG\n" +
	"   7. MultiLineText\n" +
	"   8. IfElseCondition\n" +
	"   9. SwitchCondition"

var textWithLG = []string{
	"Hello, this is a text with LG",
	"Hi, this is a text with LG",
	"Hey, this is a text with LG",
}

func buildTestFlow(t *testing.T, sendTrace bool) (*adapter.TestFlow, *adapter.FileTranscriptLogger) {
	t.Helper()

	store := storage.NewMemoryStorage()
	convState := state.NewConversationState(store)
	userState := state.NewUserState(store)

	generator, err := lg.Load(explorer, "common.lg")
	require.NoError(t, err)

	transcripts, err := adapter.NewFileTranscriptLogger(t.TempDir())
	require.NoError(t, err)

	a := adapter.NewTestAdapter(adapter.CreateConversation(t.Name()), sendTrace)
	a.UseStorage(store).
		UseState(userState, convState).
		UseLanguageGeneration(generator).
		UseResourceExplorer(explorer).
		Use(adapter.NewTranscriptLoggerMiddleware(transcripts))

	root, err := dialog.Load(explorer, "Main.dialog")
	require.NoError(t, err)

	dm := dialog.NewManager(root, func(o *dialog.Options) {
		o.ConversationState = convState
		o.UserState = userState
	})

	return adapter.NewTestFlow(a, dm.Handler()), transcripts
}

func TestMessage(t *testing.T) {
	flow, _ := buildTestFlow(t, false)

	err := flow.
		SendConversationUpdate().
		AssertReply(menu).
		Send("1").
		AssertReplyOneOf(textWithLG).
		AssertReply(menu).
		Send("2").
		AssertReply("This is a text saved in memory.").
		AssertReply(menu).
		Send("3").
		AssertReplyOneOf(textWithLG).
		AssertReply(menu).
		Send("4").
		AssertReply("Hello, I'm Zoidberg. What is your name?").
		Send("luhan").
		AssertReply("Hello luhan, nice to talk to you!").
		AssertReply(menu).
		Send("5").
		AssertReply("luhan nice to talk to you!").
		AssertReply(menu).
		AssertNoReply().
		StartTest(context.Background())

	require.NoError(t, err)
}

func TestMessage_RemainingOptions(t *testing.T) {
	flow, _ := buildTestFlow(t, false)

	err := flow.
		SendConversationUpdate().
		AssertReply(menu).
		Send("structured lg").
		AssertReplyFunc(func(a core.Activity) error {
			if a.Text != "text from structured" || a.Speak != "nice to talk to you!" {
				return fmt.Errorf("unexpected structured reply %q / %q", a.Text, a.Speak)
			}
			return nil
		}).
		AssertReply(menu).
		Send("7").
		AssertReply("you have such alarms\n  alarm1: 7:am\n  alarm2: 9:pm").
		AssertReply(menu).
		Send("8").
		AssertReply("Hello stranger, tell me your name with option 4.").
		AssertReply(menu).
		Send("9").
		AssertReply("I don't know your name yet.").
		AssertReply(menu).
		Send("4").
		AssertReply("Hello, I'm Zoidberg. What is your name?").
		Send("Fry").
		AssertReply("Hello Fry, nice to talk to you!").
		AssertReply(menu).
		Send("IfElseCondition").
		AssertReply("Welcome back, Fry!").
		AssertReply(menu).
		Send("9").
		AssertReply("Nice to see you again, Fry.").
		AssertReply(menu).
		Send("10").
		AssertReply(menu).
		StartTest(context.Background())

	require.NoError(t, err)
}

func TestMessage_Transcript(t *testing.T) {
	flow, transcripts := buildTestFlow(t, true)

	err := flow.
		SendConversationUpdate().
		AssertReply(menu).
		Send("2").
		AssertReply("This is a text saved in memory.").
		AssertReplyFunc(func(a core.Activity) error {
			if a.Type != core.ActivityTypeTrace {
				return fmt.Errorf("expected trace, got %s", a.Type)
			}
			return nil
		}).
		AssertReply(menu).
		StartTest(context.Background())
	require.NoError(t, err)

	activities, err := transcripts.GetTranscript(context.Background(), "test", t.Name())
	require.NoError(t, err)

	var texts []string
	for _, a := range activities {
		if a.Type == core.ActivityTypeMessage {
			texts = append(texts, a.Text)
		}
	}
	assert.Equal(t, []string{menu, "2", "This is a text saved in memory.", menu}, texts)
	assert.Equal(t, core.ActivityTypeConversationUpdate, activities[0].Type)
}

func TestEmbeddedSample(t *testing.T) {
	embedded, err := NewExplorer(RespondingWithText)
	require.NoError(t, err)

	var ids []string
	for _, r := range embedded.Resources("") {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"Main.dialog", "Menu.dialog", "common.lg"}, ids)

	root, err := dialog.Load(embedded, "Main")
	require.NoError(t, err)
	assert.Equal(t, []string{"Menu"}, root.ChildIDs())
}
