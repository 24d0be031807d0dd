package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/client"
	"github.com/Guyuepp/newsfeed/internal/seed"
	"github.com/Guyuepp/newsfeed/internal/session"
)

const (
	NewsCtlVersion = "0.1.0"

	defaultAPIURL  = "http://localhost:9090"
	defaultTimeout = 15 * time.Second
	defaultNum     = 10
)

const usage = `News feed control.

The api url is read from NEWSCTL_API_URL, the token is kept in
NEWSCTL_TOKEN_FILE (default ~/.newsctl_token).

Usage:
    newsctl register <email> <password> [--name=<name>]
    newsctl login <email> <password>
    newsctl login-provider <provider> <id_token>
    newsctl logout
    newsctl whoami
    newsctl feed [--category=<category>] [--num=<num>]
    newsctl ranks [--type=<type>] [--num=<num>]
    newsctl show <article_id>
    newsctl like <article_id>
    newsctl bookmark <article_id>
    newsctl bookmarks
    newsctl comments <article_id> [--num=<num>]
    newsctl comment <article_id> <text> [--anonymous]
    newsctl uncomment <article_id> <comment_id>
    newsctl publish --title=<title> --content=<content> [--category=<category>] [--image=<url>]
    newsctl seed [<file>]

Options:
    -h --help                Show this screen.
    --version                Show version.
    --name=<name>            Display name.
    --category=<category>    Only this category.
    --num=<num>              Page size [default: 10].
    --type=<type>            daily or history [default: daily].
    --anonymous              Hide your name on the comment.
    --title=<title>
    --content=<content>
    --image=<url>            Image url of the article.`

type app struct {
	api       *client.Client
	sess      *session.Session
	feed      *client.Feed
	tokenFile string
}

func init() {
	_ = godotenv.Load()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(lvl)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}
}

func tokenFile() string {
	if p := os.Getenv("NEWSCTL_TOKEN_FILE"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".newsctl_token"
	}
	return filepath.Join(home, ".newsctl_token")
}

func newApp(ctx context.Context) *app {
	endpoint := os.Getenv("NEWSCTL_API_URL")
	if endpoint == "" {
		endpoint = defaultAPIURL
	}

	api := client.New(endpoint)
	sess := session.New(api.Authenticator())
	api.SetTokenSource(sess.Token)

	a := &app{api: api, sess: sess, tokenFile: tokenFile()}
	if raw, err := os.ReadFile(a.tokenFile); err == nil {
		if tok := strings.TrimSpace(string(raw)); tok != "" {
			if _, err := sess.Restore(ctx, tok); err != nil {
				logrus.Warnf("stored token rejected: %v", err)
			}
		}
	}
	a.feed = client.NewFeed(api, sess)
	return a
}

func (a *app) close() {
	a.feed.Close()
	a.sess.Close()
}

func (a *app) saveToken() error {
	return os.WriteFile(a.tokenFile, []byte(a.sess.Token()+"\n"), 0o600)
}

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], NewsCtlVersion)
	if err != nil {
		panic(err)
	}

	if err := execute(opts); err != nil {
		logrus.Debugf("command failed: %v", err)
		fmt.Fprintln(os.Stderr, client.Message(err))
		os.Exit(1)
	}
}

func execute(opts docopt.Opts) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	a := newApp(ctx)
	defer a.close()
	return a.run(ctx, opts)
}

func (a *app) run(ctx context.Context, opts docopt.Opts) error {
	is := func(cmd string) bool {
		v, _ := opts.Bool(cmd)
		return v
	}

	switch {
	case is("register"):
		return a.register(ctx, opts)
	case is("login"):
		return a.login(ctx, opts)
	case is("login-provider"):
		return a.loginProvider(ctx, opts)
	case is("logout"):
		a.sess.SignOut()
		if err := os.Remove(a.tokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	case is("whoami"):
		return a.whoami()
	case is("feed"):
		return a.showFeed(ctx, opts)
	case is("ranks"):
		return a.ranks(ctx, opts)
	case is("show"):
		return a.show(ctx, opts)
	case is("like"):
		return a.like(ctx, opts)
	case is("bookmarks"):
		return a.bookmarks()
	case is("bookmark"):
		return a.bookmark(ctx, opts)
	case is("comments"):
		return a.comments(ctx, opts)
	case is("comment"):
		return a.comment(ctx, opts)
	case is("uncomment"):
		return a.uncomment(ctx, opts)
	case is("publish"):
		return a.publish(ctx, opts)
	case is("seed"):
		return a.seed(ctx, opts)
	}
	return nil
}

func num(opts docopt.Opts) int {
	n, err := opts.Int("--num")
	if err != nil || n <= 0 {
		return defaultNum
	}
	return n
}

func str(opts docopt.Opts, key string) string {
	v, _ := opts.String(key)
	return v
}

func (a *app) register(ctx context.Context, opts docopt.Opts) error {
	id, err := a.sess.Register(ctx, str(opts, "<email>"), str(opts, "<password>"), str(opts, "--name"))
	if err != nil {
		return err
	}
	fmt.Printf("welcome %s\n", id.DisplayName)
	return a.saveToken()
}

func (a *app) login(ctx context.Context, opts docopt.Opts) error {
	id, err := a.sess.SignIn(ctx, str(opts, "<email>"), str(opts, "<password>"))
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", id.DisplayName)
	return a.saveToken()
}

func (a *app) loginProvider(ctx context.Context, opts docopt.Opts) error {
	id, err := a.sess.SignInWithProvider(ctx, str(opts, "<provider>"), str(opts, "<id_token>"))
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", id.DisplayName)
	return a.saveToken()
}

func (a *app) whoami() error {
	id, ok := a.sess.Identity()
	if !ok {
		return domain.ErrUnauthenticated
	}
	fmt.Printf("%s <%s> role=%s bookmarks=%d\n", id.DisplayName, id.Email, id.Role, len(id.Bookmarks))
	return nil
}

func printCard(c client.Article, bookmarked bool) {
	heart := " "
	if c.Liked {
		heart = "♥"
	}
	mark := " "
	if bookmarked {
		mark = "*"
	}
	fmt.Printf("%s%s %s  [%s] %s  likes=%d comments=%d\n",
		heart, mark, c.ID, c.Category, c.Title, c.Likes, c.CommentCount)
}

func (a *app) showFeed(ctx context.Context, opts docopt.Opts) error {
	cards, err := a.feed.Load(ctx, num(opts), str(opts, "--category"))
	if err != nil {
		return err
	}
	for _, c := range cards {
		printCard(c, a.feed.IsBookmarked(c.ID))
	}
	return nil
}

func (a *app) ranks(ctx context.Context, opts docopt.Opts) error {
	list, err := a.api.GetRanks(ctx, str(opts, "--type"), num(opts))
	if err != nil {
		return err
	}
	for i, c := range list {
		fmt.Printf("%2d. %s  %s  likes=%d\n", i+1, c.ID, c.Title, c.Likes)
	}
	return nil
}

func (a *app) show(ctx context.Context, opts docopt.Opts) error {
	c, err := a.feed.Refresh(ctx, str(opts, "<article_id>"))
	if err != nil {
		return err
	}
	printCard(c, a.feed.IsBookmarked(c.ID))
	if c.Author != nil {
		fmt.Printf("by %s, %s\n", c.Author.DisplayName, c.PublishedAt.Format(time.RFC1123))
	}
	fmt.Printf("\n%s\n", c.Content)
	return nil
}

func (a *app) like(ctx context.Context, opts docopt.Opts) error {
	id := str(opts, "<article_id>")
	if _, err := a.feed.Refresh(ctx, id); err != nil {
		return err
	}
	st, err := a.feed.ToggleLike(ctx, id)
	if err != nil {
		return err
	}
	if st.On {
		fmt.Printf("liked, %d likes\n", st.Count)
	} else {
		fmt.Printf("unliked, %d likes\n", st.Count)
	}
	return nil
}

func (a *app) bookmark(ctx context.Context, opts docopt.Opts) error {
	st, err := a.feed.ToggleBookmark(ctx, str(opts, "<article_id>"))
	if err != nil {
		return err
	}
	if st.On {
		fmt.Printf("bookmarked, %d saved\n", st.Count)
	} else {
		fmt.Printf("bookmark removed, %d saved\n", st.Count)
	}
	return nil
}

func (a *app) bookmarks() error {
	if !a.sess.LoggedIn() {
		return domain.ErrUnauthenticated
	}
	for _, id := range a.feed.Bookmarks() {
		fmt.Println(id)
	}
	return nil
}

func printComment(c client.Comment) {
	who := c.AuthorName
	if c.IsAnonymous || who == "" {
		who = "anonymous"
	}
	fmt.Printf("%s  %s: %s\n", c.ID, who, c.Text)
}

func (a *app) comments(ctx context.Context, opts docopt.Opts) error {
	list, err := a.feed.LoadComments(ctx, str(opts, "<article_id>"), num(opts))
	if err != nil {
		return err
	}
	for _, c := range list {
		printComment(c)
	}
	return nil
}

func (a *app) comment(ctx context.Context, opts docopt.Opts) error {
	anonymous, _ := opts.Bool("--anonymous")
	c, err := a.feed.PostComment(ctx, str(opts, "<article_id>"), str(opts, "<text>"), anonymous)
	if err != nil {
		return err
	}
	printComment(c)
	return nil
}

func (a *app) uncomment(ctx context.Context, opts docopt.Opts) error {
	if err := a.feed.DeleteComment(ctx, str(opts, "<article_id>"), str(opts, "<comment_id>")); err != nil {
		return err
	}
	fmt.Println("comment deleted")
	return nil
}

func (a *app) publish(ctx context.Context, opts docopt.Opts) error {
	if !a.sess.IsAdmin() {
		if !a.sess.LoggedIn() {
			return domain.ErrUnauthenticated
		}
		return domain.ErrForbidden
	}
	c, err := a.api.AddArticle(ctx, client.ArticleInput{
		Title:    str(opts, "--title"),
		Content:  str(opts, "--content"),
		Category: str(opts, "--category"),
		ImageURL: str(opts, "--image"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("published %s\n", c.ID)
	return nil
}

func (a *app) seed(ctx context.Context, opts docopt.Opts) error {
	if !a.sess.IsAdmin() {
		return domain.ErrForbidden
	}
	list, err := seed.Load(str(opts, "<file>"))
	if err != nil {
		return err
	}
	ids, err := seed.Publish(ctx, a.api, list)
	for _, id := range ids {
		fmt.Printf("published %s\n", id)
	}
	return err
}
