package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	feedLimit  int
	feedOffset int
	feedSource string
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Read your feed from the terminal",
	Long:  "Fetch the personalized or following feed and print it as a list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showFeed()
	},
}

func init() {
	feedCmd.Flags().IntVar(&feedLimit, "limit", 20, "Number of posts to fetch")
	feedCmd.Flags().IntVar(&feedOffset, "offset", 0, "Offset into the feed")
	feedCmd.Flags().StringVar(&feedSource, "source", "personalized", "Feed source: personalized or following")
}

func showFeed() error {
	if feedSource != "personalized" && feedSource != "following" {
		return fmt.Errorf("--source must be personalized or following")
	}

	path := fmt.Sprintf("/api/v1/feed/%s?limit=%d&offset=%d", feedSource, feedLimit, feedOffset)
	body, err := apiRequest("GET", path, nil)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var response struct {
		Posts []struct {
			ID        string  `json:"id"`
			PostType  string  `json:"post_type"`
			Content   string  `json:"content"`
			CreatedAt string  `json:"created_at"`
			Reason    string  `json:"reason"`
			Score     float64 `json:"score"`
			LikeCount int     `json:"like_count"`
			Author    struct {
				Username string `json:"username"`
			} `json:"author"`
		} `json:"posts"`
		HasMore bool `json:"has_more"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Posts) == 0 {
		fmt.Println("Your feed is empty. Follow some blogs or tags!")
		return nil
	}

	for _, post := range response.Posts {
		content := post.Content
		if len(content) > 80 {
			content = content[:77] + "..."
		}
		fmt.Printf("@%-20s [%s] %s\n", post.Author.Username, post.PostType, content)
		if post.Reason != "" {
			fmt.Printf("  %s · %d likes · %s\n", post.Reason, post.LikeCount, post.CreatedAt)
		} else {
			fmt.Printf("  %d likes · %s\n", post.LikeCount, post.CreatedAt)
		}
	}
	if response.HasMore {
		fmt.Printf("\nMore available: --offset %d\n", feedOffset+feedLimit)
	}

	return nil
}
